package types

import "time"

// Media is a stored media record created ahead of the byte transfer.
type Media struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	UploadURL string    `json:"upload_url,omitempty"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}
