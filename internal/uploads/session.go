package uploads

import (
	"sync"

	"github.com/google/uuid"
)

// FileStatus is the lifecycle state of one file in a session.
type FileStatus string

const (
	FileStatusPending    FileStatus = "pending"
	FileStatusUploading  FileStatus = "uploading"
	FileStatusProcessing FileStatus = "processing"
	FileStatusCompleted  FileStatus = "completed"
	FileStatusFailed     FileStatus = "failed"
)

// SessionStatus is derived from the file statuses, never stored.
type SessionStatus string

const (
	SessionStatusUploading SessionStatus = "uploading"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
)

func (s FileStatus) resolved() bool {
	return s == FileStatusCompleted || s == FileStatusFailed
}

// FileProgress is the tracked state of one file.
type FileProgress struct {
	FileID   string
	FileName string
	Progress int
	Status   FileStatus
	Error    string
	MediaID  string
}

// Event is one progress snapshot pushed to the session's event stream.
type Event struct {
	SessionID string
	File      FileProgress
	Session   SessionStatus
}

// Session tracks one upload batch. File state changes are pushed to a
// buffered event channel which closes once every file is resolved; a consumer
// that falls behind misses intermediate ticks but always observes the close.
type Session struct {
	id string

	mu        sync.Mutex
	order     []string
	files     map[string]*FileProgress
	events    chan Event
	closed    bool
	cancelled bool
	reason    string
}

// NewSession registers one pending FileProgress per file name and returns the
// session. File IDs are assigned here, not by the server.
func NewSession(fileNames []string) *Session {
	s := &Session{
		id:    uuid.NewString(),
		files: make(map[string]*FileProgress, len(fileNames)),
	}
	for _, name := range fileNames {
		id := uuid.NewString()
		s.order = append(s.order, id)
		s.files[id] = &FileProgress{FileID: id, FileName: name, Status: FileStatusPending}
	}
	s.events = make(chan Event, len(fileNames)*8+4)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Events returns the session's event stream. The channel closes when the
// session reaches a terminal status.
func (s *Session) Events() <-chan Event { return s.events }

// Files returns a snapshot of every tracked file in registration order.
func (s *Session) Files() []FileProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FileProgress, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.files[id])
	}
	return out
}

// Status derives the session state from its files: completed when every file
// completed, failed when any file failed and none is still in flight,
// uploading otherwise.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Session) statusLocked() SessionStatus {
	allCompleted := true
	anyFailed := false
	allResolved := true
	for _, f := range s.files {
		if f.Status != FileStatusCompleted {
			allCompleted = false
		}
		if f.Status == FileStatusFailed {
			anyFailed = true
		}
		if !f.Status.resolved() {
			allResolved = false
		}
	}
	switch {
	case len(s.files) == 0 || allCompleted:
		return SessionStatusCompleted
	case anyFailed && allResolved:
		return SessionStatusFailed
	default:
		return SessionStatusUploading
	}
}

// Cancel marks every unresolved file failed with the given reason. It is
// advisory: transfers already on the wire are not aborted, their results are
// simply ignored by the status derivation.
func (s *Session) Cancel(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return
	}
	s.cancelled = true
	s.reason = reason
	for _, id := range s.order {
		f := s.files[id]
		if !f.Status.resolved() {
			f.Status = FileStatusFailed
			f.Error = reason
			s.emitLocked(*f)
		}
	}
	s.closeIfTerminalLocked()
}

// Cancelled reports whether Cancel was called, with its reason.
func (s *Session) Cancelled() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled, s.reason
}

func (s *Session) update(fileID string, apply func(*FileProgress)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileID]
	if !ok {
		return
	}
	if f.Status.resolved() {
		// A cancelled file stays failed even if its transfer later lands.
		return
	}
	apply(f)
	s.emitLocked(*f)
	s.closeIfTerminalLocked()
}

func (s *Session) markUploading(fileID string) {
	s.update(fileID, func(f *FileProgress) {
		f.Status = FileStatusUploading
		f.Progress = 0
	})
}

func (s *Session) setProgress(fileID string, percent int) {
	s.update(fileID, func(f *FileProgress) {
		f.Status = FileStatusUploading
		if percent > f.Progress {
			f.Progress = percent
		}
	})
}

func (s *Session) markProcessing(fileID string) {
	s.update(fileID, func(f *FileProgress) {
		f.Status = FileStatusProcessing
		f.Progress = 100
	})
}

func (s *Session) markCompleted(fileID, mediaID string) {
	s.update(fileID, func(f *FileProgress) {
		f.Status = FileStatusCompleted
		f.Progress = 100
		f.MediaID = mediaID
	})
}

func (s *Session) markFailed(fileID, reason string) {
	s.update(fileID, func(f *FileProgress) {
		f.Status = FileStatusFailed
		f.Error = reason
	})
}

func (s *Session) emitLocked(f FileProgress) {
	if s.closed {
		return
	}
	select {
	case s.events <- Event{SessionID: s.id, File: f, Session: s.statusLocked()}:
	default:
	}
}

// finish closes the event stream if the session is already terminal. Covers
// batches whose files all resolve before any event, including empty ones.
func (s *Session) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeIfTerminalLocked()
}

func (s *Session) closeIfTerminalLocked() {
	if s.closed {
		return
	}
	if status := s.statusLocked(); status == SessionStatusCompleted || status == SessionStatusFailed {
		s.closed = true
		close(s.events)
	}
}
