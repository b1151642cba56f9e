package uploads

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pkgerrors "github.com/solarmart/solarmart-client/pkg/errors"
	"github.com/solarmart/solarmart-client/pkg/types"
)

type fakeMedia struct {
	mu           sync.Mutex
	created      []string
	createErr    error
	transferErr  error
	transferHold time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeMedia) Create(ctx context.Context, fileName, mimeType string, sizeBytes int64) (*types.Media, error) {
	f.mu.Lock()
	f.created = append(f.created, fileName)
	f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &types.Media{ID: "media-" + fileName, UploadURL: "https://store.example/" + fileName}, nil
}

func (f *fakeMedia) Transfer(ctx context.Context, uploadURL, mimeType string, body io.Reader, size int64, onProgress func(sent int64)) error {
	current := f.inFlight.Add(1)
	for {
		max := f.maxInFlight.Load()
		if current <= max || f.maxInFlight.CompareAndSwap(max, current) {
			break
		}
	}
	defer f.inFlight.Add(-1)

	if f.transferHold > 0 {
		time.Sleep(f.transferHold)
	}
	if f.transferErr != nil {
		return f.transferErr
	}
	sent, err := io.Copy(io.Discard, body)
	if err != nil {
		return err
	}
	if onProgress != nil {
		onProgress(sent)
	}
	return nil
}

func (f *fakeMedia) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func waitTerminal(t *testing.T, session *Session) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-session.Events():
			if !open {
				return
			}
		case <-deadline:
			t.Fatalf("session never reached a terminal state, status %s", session.Status())
		}
	}
}

func batch(names ...string) []File {
	files := make([]File, len(names))
	for i, name := range names {
		files[i] = File{Name: name, MimeType: "image/png", Size: 4, Body: strings.NewReader("data")}
	}
	return files
}

func TestBatchCompletes(t *testing.T) {
	t.Parallel()

	media := &fakeMedia{}
	tracker, err := NewTracker(Params{Media: media, Concurrency: 2})
	if err != nil {
		t.Fatalf("building tracker: %v", err)
	}

	session := tracker.Start(context.Background(), batch("roof.png", "meter.png"))
	waitTerminal(t, session)

	if got := session.Status(); got != SessionStatusCompleted {
		t.Fatalf("status = %s, want completed", got)
	}
	for _, f := range session.Files() {
		if f.Status != FileStatusCompleted || f.Progress != 100 || f.MediaID == "" {
			t.Fatalf("unexpected file state: %+v", f)
		}
	}
	if media.createdCount() != 2 {
		t.Fatalf("expected 2 media records, got %d", media.createdCount())
	}
}

func TestOversizedFileRejectedBeforeCreate(t *testing.T) {
	t.Parallel()

	media := &fakeMedia{}
	tracker, _ := NewTracker(Params{Media: media, Concurrency: 1, MaxBytes: 10})

	files := batch("small.png")
	files = append(files, File{Name: "huge.bin", MimeType: "application/octet-stream", Size: 11, Body: strings.NewReader("x")})

	session := tracker.Start(context.Background(), files)
	waitTerminal(t, session)

	if got := session.Status(); got != SessionStatusFailed {
		t.Fatalf("status = %s, want failed", got)
	}
	states := session.Files()
	if states[0].Status != FileStatusCompleted {
		t.Fatalf("small file should complete: %+v", states[0])
	}
	if states[1].Status != FileStatusFailed {
		t.Fatalf("oversized file should fail: %+v", states[1])
	}
	if media.createdCount() != 1 {
		t.Fatalf("oversized file reached the media API, created=%v", media.created)
	}
}

func TestTransferFailureMarksFileFailed(t *testing.T) {
	t.Parallel()

	media := &fakeMedia{transferErr: pkgerrors.New(pkgerrors.CodeServer, "storage unavailable")}
	tracker, _ := NewTracker(Params{Media: media, Concurrency: 1})

	session := tracker.Start(context.Background(), batch("roof.png"))
	waitTerminal(t, session)

	file := session.Files()[0]
	if file.Status != FileStatusFailed || file.Error == "" {
		t.Fatalf("unexpected file state: %+v", file)
	}
	if got := session.Status(); got != SessionStatusFailed {
		t.Fatalf("status = %s, want failed", got)
	}
}

func TestConcurrencyIsBounded(t *testing.T) {
	t.Parallel()

	media := &fakeMedia{transferHold: 20 * time.Millisecond}
	tracker, _ := NewTracker(Params{Media: media, Concurrency: 2})

	session := tracker.Start(context.Background(), batch("a", "b", "c", "d", "e", "f"))
	waitTerminal(t, session)

	if max := media.maxInFlight.Load(); max > 2 {
		t.Fatalf("observed %d parallel transfers, want at most 2", max)
	}
	if got := session.Status(); got != SessionStatusCompleted {
		t.Fatalf("status = %s, want completed", got)
	}
}

func TestCancelSkipsQueuedFiles(t *testing.T) {
	t.Parallel()

	media := &fakeMedia{transferHold: 30 * time.Millisecond}
	tracker, _ := NewTracker(Params{Media: media, Concurrency: 1})

	session := tracker.Start(context.Background(), batch("first", "second", "third"))
	time.Sleep(10 * time.Millisecond)
	session.Cancel("navigated away")
	waitTerminal(t, session)

	if got := session.Status(); got != SessionStatusFailed {
		t.Fatalf("status = %s, want failed", got)
	}
	// Queued files never reach the media API once the session is cancelled.
	if media.createdCount() >= 3 {
		t.Fatalf("cancelled batch still created %d media records", media.createdCount())
	}
}
