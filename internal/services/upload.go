package services

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	pkgerrors "github.com/peres84/AdFlowEcomm/internal/pkg/errors"
	"github.com/peres84/AdFlowEcomm/internal/pkg/logger"
)

const (
	maxUploadBytes = 10 << 20 // 10MB
	maxDimension   = 1024
	jpegQuality    = 85
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// UploadKind distinguishes the two image slots on a session.
type UploadKind string

const (
	UploadProduct UploadKind = "product"
	UploadLogo    UploadKind = "logo"
)

// StoredUpload describes a validated, downscaled image on disk.
type StoredUpload struct {
	Path   string
	URL    string
	Width  int
	Height int
}

// UploadService validates incoming images, downscales oversized ones and
// writes them under the uploads directory keyed by session.
type UploadService interface {
	Save(sessionID uuid.UUID, kind UploadKind, filename string, data []byte) (StoredUpload, error)
	RemoveSessionFiles(sessionID uuid.UUID)
}

type uploadService struct {
	log       *logger.Logger
	uploadDir string
	publicURL string
}

// NewUploadService stores files under uploadDir and builds public URLs with
// publicPath as prefix (e.g. "/uploads").
func NewUploadService(log *logger.Logger, uploadDir, publicPath string) UploadService {
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if publicPath == "" {
		publicPath = "/uploads"
	}
	return &uploadService{
		log:       log.With("service", "UploadService"),
		uploadDir: uploadDir,
		publicURL: strings.TrimRight(publicPath, "/"),
	}
}

func (u *uploadService) Save(sessionID uuid.UUID, kind UploadKind, filename string, data []byte) (StoredUpload, error) {
	var out StoredUpload

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return out, fmt.Errorf("%w: file type %q not allowed (jpg, jpeg, png, webp)", pkgerrors.ErrInvalidInput, ext)
	}
	if len(data) == 0 {
		return out, fmt.Errorf("%w: empty file", pkgerrors.ErrInvalidInput)
	}
	if len(data) > maxUploadBytes {
		return out, fmt.Errorf("%w: file too large, maximum size 10MB", pkgerrors.ErrInvalidInput)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return out, fmt.Errorf("%w: not a decodable image: %v", pkgerrors.ErrInvalidInput, err)
	}

	img, resized := downscale(img, maxDimension)

	// Everything is persisted as jpeg or png; webp input becomes png.
	outExt := ext
	if outExt == ".webp" {
		outExt = ".png"
	}

	if err := os.MkdirAll(u.uploadDir, 0o755); err != nil {
		return out, fmt.Errorf("create upload dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s%s", sessionID, kind, uuid.NewString()[:8], outExt)
	path := filepath.Join(u.uploadDir, name)

	f, err := os.Create(path)
	if err != nil {
		return out, fmt.Errorf("create upload file: %w", err)
	}
	switch outExt {
	case ".png":
		err = png.Encode(f, img)
	default:
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality})
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return out, fmt.Errorf("encode upload: %w", err)
	}

	bounds := img.Bounds()
	out = StoredUpload{
		Path:   path,
		URL:    u.publicURL + "/" + name,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}
	u.log.Info("Upload stored",
		"session_id", sessionID,
		"kind", kind,
		"path", path,
		"resized", resized,
		"width", out.Width,
		"height", out.Height,
	)
	return out, nil
}

// RemoveSessionFiles deletes every upload written for a session. Used when
// the session is disposed or expires.
func (u *uploadService) RemoveSessionFiles(sessionID uuid.UUID) {
	pattern := filepath.Join(u.uploadDir, sessionID.String()+"_*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err == nil {
			u.log.Debug("Upload removed", "path", m)
		}
	}
}

// downscale resizes img so neither dimension exceeds max, preserving aspect
// ratio, using Catmull-Rom interpolation.
func downscale(img image.Image, max int) (image.Image, bool) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= max && h <= max {
		return img, false
	}

	var nw, nh int
	if w > h {
		nw = max
		nh = h * max / w
	} else {
		nh = max
		nw = w * max / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst, true
}
