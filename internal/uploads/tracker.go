package uploads

import (
	"context"
	"fmt"
	"io"
	"sync"

	pkgerrors "github.com/solarmart/solarmart-client/pkg/errors"
	"github.com/solarmart/solarmart-client/pkg/logger"
	"github.com/solarmart/solarmart-client/pkg/metrics"
	"github.com/solarmart/solarmart-client/pkg/types"
)

type mediaAPI interface {
	Create(ctx context.Context, fileName, mimeType string, sizeBytes int64) (*types.Media, error)
	Transfer(ctx context.Context, uploadURL, mimeType string, body io.Reader, size int64, onProgress func(sent int64)) error
}

// File is one upload candidate handed to the tracker.
type File struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.Reader
}

// Params configures a Tracker.
type Params struct {
	Media       mediaAPI
	Logger      *logger.Logger
	Metrics     *metrics.UploadMetrics
	Concurrency int
	MaxBytes    int64
}

// Tracker runs upload batches against the media API, tracking per-file
// progress in a Session and bounding parallel transfers with a worker pool.
type Tracker struct {
	media       mediaAPI
	logg        *logger.Logger
	metrics     *metrics.UploadMetrics
	concurrency int
	maxBytes    int64
}

// NewTracker builds an upload tracker. Logger and Metrics may be nil.
func NewTracker(p Params) (*Tracker, error) {
	if p.Media == nil {
		return nil, fmt.Errorf("media client required")
	}
	if p.Concurrency <= 0 {
		p.Concurrency = 1
	}
	return &Tracker{
		media:       p.Media,
		logg:        p.Logger,
		metrics:     p.Metrics,
		concurrency: p.Concurrency,
		maxBytes:    p.MaxBytes,
	}, nil
}

// Start registers the batch in a new Session and launches the transfers. The
// returned session is live immediately; callers consume Session.Events or poll
// Session.Files while the batch runs.
func (t *Tracker) Start(ctx context.Context, files []File) *Session {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	session := NewSession(names)
	ids := make([]string, 0, len(files))
	for _, f := range session.Files() {
		ids = append(ids, f.FileID)
	}

	go t.run(ctx, session, ids, files)
	return session
}

func (t *Tracker) run(ctx context.Context, session *Session, ids []string, files []File) {
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < t.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				t.uploadOne(ctx, session, ids[i], files[i])
			}
		}()
	}
	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	session.finish()

	status := string(session.Status())
	t.metrics.IncSession(status)
	if t.logg != nil {
		lctx := t.logg.WithFields(ctx, map[string]any{
			"session_id": session.ID(),
			"files":      len(files),
			"status":     status,
		})
		t.logg.Info(lctx, "upload session finished")
	}
}

func (t *Tracker) uploadOne(ctx context.Context, session *Session, fileID string, file File) {
	if cancelled, _ := session.Cancelled(); cancelled {
		return
	}
	if err := t.admit(file); err != nil {
		t.fail(ctx, session, fileID, file, err)
		return
	}

	session.markUploading(fileID)
	record, err := t.media.Create(ctx, file.Name, file.MimeType, file.Size)
	if err != nil {
		t.fail(ctx, session, fileID, file, err)
		return
	}

	err = t.media.Transfer(ctx, record.UploadURL, file.MimeType, file.Body, file.Size, func(sent int64) {
		if file.Size > 0 {
			session.setProgress(fileID, int(sent*100/file.Size))
		}
	})
	if err != nil {
		t.fail(ctx, session, fileID, file, err)
		return
	}

	session.markProcessing(fileID)
	session.markCompleted(fileID, record.ID)
	t.metrics.IncFile(string(FileStatusCompleted))
	t.metrics.AddBytes(file.Size)
}

func (t *Tracker) admit(file File) error {
	if file.Body == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "file body required")
	}
	if file.MimeType == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "mime type required")
	}
	if t.maxBytes > 0 && file.Size > t.maxBytes {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("file exceeds the %d byte upload limit", t.maxBytes)).
			WithData(map[string]int64{"size": file.Size, "max": t.maxBytes})
	}
	return nil
}

func (t *Tracker) fail(ctx context.Context, session *Session, fileID string, file File, err error) {
	session.markFailed(fileID, err.Error())
	t.metrics.IncFile(string(FileStatusFailed))
	if t.logg != nil {
		lctx := t.logg.WithFields(ctx, map[string]any{
			"session_id": session.ID(),
			"file_name":  file.Name,
		})
		t.logg.Error(lctx, "file upload failed", err)
	}
}
