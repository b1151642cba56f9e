package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// UploadMetrics records batch upload activity.
type UploadMetrics struct {
	files    *prometheus.CounterVec
	sessions *prometheus.CounterVec
	bytes    prometheus.Counter
}

// NewUploadMetrics registers the upload metrics on the provided registerer.
func NewUploadMetrics(reg prometheus.Registerer) *UploadMetrics {
	if reg == nil {
		return &UploadMetrics{}
	}
	files := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "client_upload_files_total",
		Help: "Files processed by upload sessions, by terminal status.",
	}, []string{"status"})
	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "client_upload_sessions_total",
		Help: "Upload sessions by terminal status.",
	}, []string{"status"})
	bytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "client_upload_bytes_total",
		Help: "Bytes successfully transferred to the media store.",
	})
	reg.MustRegister(files, sessions, bytes)
	return &UploadMetrics{files: files, sessions: sessions, bytes: bytes}
}

// IncFile counts one file reaching a terminal status.
func (u *UploadMetrics) IncFile(status string) {
	if u == nil || u.files == nil {
		return
	}
	u.files.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncSession counts one session reaching a terminal status.
func (u *UploadMetrics) IncSession(status string) {
	if u == nil || u.sessions == nil {
		return
	}
	u.sessions.WithLabelValues(normalizeLabel(status)).Inc()
}

// AddBytes records transferred payload size.
func (u *UploadMetrics) AddBytes(n int64) {
	if u == nil || u.bytes == nil || n <= 0 {
		return
	}
	u.bytes.Add(float64(n))
}
