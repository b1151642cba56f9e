package uploads

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/solarmart/solarmart-client/pkg/errors"
)

type stubDoer struct {
	method   string
	path     string
	body     any
	response string
	err      error
}

func (s *stubDoer) DoJSON(ctx context.Context, method, path string, body, out any) error {
	s.method, s.path, s.body = method, path, body
	if s.err != nil {
		return s.err
	}
	if out == nil || s.response == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.response), out)
}

func TestCreateReturnsRecordWithUploadURL(t *testing.T) {
	t.Parallel()

	doer := &stubDoer{response: `{"id":"m1","upload_url":"https://store.example/m1","file_name":"roof.png"}`}
	client, err := NewMediaClient(doer, nil)
	if err != nil {
		t.Fatalf("building client: %v", err)
	}

	media, err := client.Create(context.Background(), "roof.png", "image/png", 128)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if media.ID != "m1" || media.UploadURL == "" {
		t.Fatalf("unexpected media: %+v", media)
	}
	if doer.method != http.MethodPost || doer.path != "/api/media" {
		t.Fatalf("unexpected call: %s %s", doer.method, doer.path)
	}
	payload, ok := doer.body.(createMediaRequest)
	if !ok || payload.FileName != "roof.png" || payload.SizeBytes != 128 {
		t.Fatalf("unexpected payload: %+v", doer.body)
	}
}

func TestCreateWithoutUploadURLFails(t *testing.T) {
	t.Parallel()

	doer := &stubDoer{response: `{"id":"m1"}`}
	client, _ := NewMediaClient(doer, nil)

	_, err := client.Create(context.Background(), "roof.png", "image/png", 128)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeServer {
		t.Fatalf("expected server error, got %v", err)
	}
}

func TestTransferStreamsBytesWithProgress(t *testing.T) {
	t.Parallel()

	var received []byte
	var contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, _ := NewMediaClient(&stubDoer{}, server.Client())

	payload := "solar panel picture bytes"
	var lastSent int64
	err := client.Transfer(context.Background(), server.URL, "image/png",
		strings.NewReader(payload), int64(len(payload)), func(sent int64) { lastSent = sent })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(received) != payload {
		t.Fatalf("server received %q", received)
	}
	if contentType != "image/png" {
		t.Fatalf("content type = %q", contentType)
	}
	if lastSent != int64(len(payload)) {
		t.Fatalf("final progress %d, want %d", lastSent, len(payload))
	}
}

func TestTransferRejectionSurfacesStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client, _ := NewMediaClient(&stubDoer{}, server.Client())

	err := client.Transfer(context.Background(), server.URL, "image/png", strings.NewReader("x"), 1, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Status() != http.StatusForbidden {
		t.Fatalf("expected status 403 error, got %v", err)
	}
}

func TestTransferNetworkFailureIsNetworkError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client, _ := NewMediaClient(&stubDoer{}, nil)

	err := client.Transfer(context.Background(), server.URL, "image/png", strings.NewReader("x"), 1, nil)
	if !pkgerrors.IsNetwork(err) {
		t.Fatalf("expected network error, got %v", err)
	}
}
