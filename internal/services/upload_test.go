package services

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/peres84/AdFlowEcomm/internal/pkg/errors"
	"github.com/peres84/AdFlowEcomm/internal/pkg/logger"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestUploadSaveAndResize(t *testing.T) {
	dir := t.TempDir()
	svc := NewUploadService(logger.NewNop(), dir, "/uploads")
	sessionID := uuid.New()

	stored, err := svc.Save(sessionID, UploadProduct, "photo.png", encodePNG(t, 2048, 1024))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if stored.Width != 1024 || stored.Height != 512 {
		t.Fatalf("dimensions=%dx%d, want 1024x512", stored.Width, stored.Height)
	}
	if !strings.HasPrefix(stored.URL, "/uploads/") {
		t.Fatalf("url=%q", stored.URL)
	}
	if _, err := os.Stat(stored.Path); err != nil {
		t.Fatalf("stored file missing: %v", err)
	}
	if !strings.Contains(stored.Path, sessionID.String()) {
		t.Fatalf("path not keyed by session: %q", stored.Path)
	}
}

func TestUploadSmallImageKeptAsIs(t *testing.T) {
	svc := NewUploadService(logger.NewNop(), t.TempDir(), "/uploads")

	stored, err := svc.Save(uuid.New(), UploadLogo, "logo.png", encodePNG(t, 300, 200))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if stored.Width != 300 || stored.Height != 200 {
		t.Fatalf("small image was resized: %dx%d", stored.Width, stored.Height)
	}
}

func TestUploadValidation(t *testing.T) {
	svc := NewUploadService(logger.NewNop(), t.TempDir(), "/uploads")
	id := uuid.New()

	tests := []struct {
		name     string
		filename string
		data     []byte
	}{
		{"bad_extension", "doc.pdf", encodePNG(t, 10, 10)},
		{"empty_file", "a.png", nil},
		{"not_an_image", "a.png", []byte("plain text")},
		{"oversized", "a.png", make([]byte, maxUploadBytes+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Save(id, UploadProduct, tt.filename, tt.data); !errors.Is(err, pkgerrors.ErrInvalidInput) {
				t.Fatalf("err=%v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestRemoveSessionFiles(t *testing.T) {
	dir := t.TempDir()
	svc := NewUploadService(logger.NewNop(), dir, "/uploads")
	id := uuid.New()

	stored, err := svc.Save(id, UploadProduct, "p.png", encodePNG(t, 64, 64))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	other, err := svc.Save(uuid.New(), UploadProduct, "q.png", encodePNG(t, 64, 64))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	svc.RemoveSessionFiles(id)
	if _, err := os.Stat(stored.Path); !os.IsNotExist(err) {
		t.Fatalf("session file still present: %v", err)
	}
	if _, err := os.Stat(other.Path); err != nil {
		t.Fatalf("unrelated session file removed: %v", err)
	}
}
