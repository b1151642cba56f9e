package uploads

import (
	"context"
	"fmt"
	"io"
	"net/http"

	pkgerrors "github.com/solarmart/solarmart-client/pkg/errors"
	"github.com/solarmart/solarmart-client/pkg/types"
)

type httpDoer interface {
	DoJSON(ctx context.Context, method, path string, body, out any) error
}

// MediaClient creates media records through the authenticated pipeline and
// streams the file bytes to the storage URL the server hands back. The
// transfer itself bypasses the pipeline: the upload URL is pre-signed and
// carries no bearer credential.
type MediaClient struct {
	http     httpDoer
	transfer *http.Client
}

// NewMediaClient builds a media client. transfer may be nil, in which case
// http.DefaultClient moves the bytes.
func NewMediaClient(http httpDoer, transfer *http.Client) (*MediaClient, error) {
	if http == nil {
		return nil, fmt.Errorf("http client required")
	}
	return &MediaClient{http: http, transfer: transfer}, nil
}

type createMediaRequest struct {
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// Create registers the media record and returns it with the pre-signed
// upload URL.
func (c *MediaClient) Create(ctx context.Context, fileName, mimeType string, sizeBytes int64) (*types.Media, error) {
	media := &types.Media{}
	payload := createMediaRequest{FileName: fileName, MimeType: mimeType, SizeBytes: sizeBytes}
	if err := c.http.DoJSON(ctx, http.MethodPost, "/api/media", payload, media); err != nil {
		return nil, err
	}
	if media.UploadURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeServer, "media record missing upload url")
	}
	return media, nil
}

// Transfer streams body to the pre-signed URL, reporting transferred bytes
// through onProgress after each read.
func (c *MediaClient) Transfer(ctx context.Context, uploadURL, mimeType string, body io.Reader, size int64, onProgress func(sent int64)) error {
	reader := &progressReader{r: body, onProgress: onProgress}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building transfer request")
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", mimeType)

	client := c.transfer
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return pkgerrors.NewNetwork(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return pkgerrors.New(pkgerrors.CodeServer,
			fmt.Sprintf("media store rejected transfer with status %d", resp.StatusCode)).
			WithStatus(resp.StatusCode)
	}
	return nil
}

type progressReader struct {
	r          io.Reader
	sent       int64
	onProgress func(sent int64)
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.sent += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.sent)
		}
	}
	return n, err
}
