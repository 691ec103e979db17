package localmedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/peres84/AdFlowEcomm/internal/pkg/ctxutil"
	"github.com/peres84/AdFlowEcomm/internal/pkg/logger"
)

// Tools is the glue around the ffmpeg/ffprobe binaries.
//
// REQUIRED BINARIES in the server runtime:
// - ffmpeg for concatenating scene clips
// - ffprobe for inspecting finished videos
//
// Concatenation is synchronous and should be called from job goroutines,
// not request handlers.
type Tools interface {
	AssertReady(ctx context.Context) error

	// ConcatVideos joins the inputs in order into outputPath using the
	// concat demuxer with stream copy. All inputs must share codec,
	// resolution and frame rate.
	ConcatVideos(ctx context.Context, inputPaths []string, outputPath string) error

	ProbeVideo(ctx context.Context, path string) (VideoInfo, error)
}

// VideoInfo is the subset of ffprobe output the app cares about.
type VideoInfo struct {
	DurationSeconds float64
	Width           int
	Height          int
	Codec           string
	SizeBytes       int64
}

type tools struct {
	log *logger.Logger

	ffmpegPath  string
	ffprobePath string

	defaultTimeout time.Duration
}

func New(log *logger.Logger) Tools {
	return &tools{
		log:            log.With("service", "MediaTools"),
		ffmpegPath:     "ffmpeg",
		ffprobePath:    "ffprobe",
		defaultTimeout: 5 * time.Minute,
	}
}

func (m *tools) AssertReady(ctx context.Context) error {
	if err := ctxutil.Default(ctx).Err(); err != nil {
		return err
	}
	for _, bin := range []string{m.ffmpegPath, m.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	return nil
}

func (m *tools) ConcatVideos(ctx context.Context, inputPaths []string, outputPath string) error {
	ctx = ctxutil.Default(ctx)
	if len(inputPaths) == 0 {
		return fmt.Errorf("no input videos")
	}
	if outputPath == "" {
		return fmt.Errorf("outputPath required")
	}

	for _, p := range inputPaths {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("input video %s: %w", p, err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("mkdir output dir: %w", err)
	}

	// A single clip needs no demuxer pass.
	if len(inputPaths) == 1 {
		return copyFile(inputPaths[0], outputPath)
	}

	listPath := filepath.Join(filepath.Dir(outputPath), fmt.Sprintf("concat_list_%s.txt", uuid.NewString()[:8]))
	if err := writeConcatList(listPath, inputPaths); err != nil {
		return err
	}
	defer os.Remove(listPath)

	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.ffmpegPath,
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		"-y",
		outputPath,
	)

	m.log.Info("Concatenating videos", "inputs", len(inputPaths), "output", outputPath)

	out, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(outputPath)
		return fmt.Errorf("ffmpeg concat failed: %w; out=%s", err, tail(string(out), 2048))
	}
	return nil
}

// writeConcatList writes a concat demuxer list file. Paths are absolute and
// single quotes are escaped the way ffmpeg expects.
func writeConcatList(listPath string, inputPaths []string) error {
	var b strings.Builder
	for _, p := range inputPaths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", p, err)
		}
		escaped := strings.ReplaceAll(abs, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}

func (m *tools) ProbeVideo(ctx context.Context, path string) (VideoInfo, error) {
	ctx = ctxutil.Default(ctx)
	var info VideoInfo

	st, err := os.Stat(path)
	if err != nil {
		return info, fmt.Errorf("stat video: %w", err)
	}
	info.SizeBytes = st.Size()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, m.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return info, fmt.Errorf("ffprobe failed: %w", err)
	}

	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType string `json:"codec_type"`
			CodecName string `json:"codec_name"`
			Width     int    `json:"width"`
			Height    int    `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(out, &probe); err != nil {
		return info, fmt.Errorf("parse ffprobe output: %w", err)
	}

	if d, err := strconv.ParseFloat(strings.TrimSpace(probe.Format.Duration), 64); err == nil {
		info.DurationSeconds = d
	}
	for _, s := range probe.Streams {
		if s.CodecType == "video" {
			info.Width = s.Width
			info.Height = s.Height
			info.Codec = s.CodecName
			break
		}
	}
	return info, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
