package runware

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/peres84/AdFlowEcomm/internal/pkg/httpx"
	"github.com/peres84/AdFlowEcomm/internal/pkg/logger"
	"github.com/peres84/AdFlowEcomm/internal/videogen"
)

// Runware multiplexes every operation over one endpoint: the request body is
// an array of task objects, each carrying taskType and a client-chosen
// taskUUID, and responses come back as a data array keyed by that UUID.

const (
	defaultBaseURL    = "https://api.runware.ai/v1"
	defaultImageModel = "runware:100@1"
	defaultVideoModel = "klingai:6@1"
)

// ImageRequest drives one synchronous imageInference task.
type ImageRequest struct {
	Prompt          string
	NegativePrompt  string
	Width           int
	Height          int
	NumberResults   int
	ReferenceImages []string
}

// ImageResult is one generated image.
type ImageResult struct {
	ImageUUID string
	URL       string
}

// Client talks to the Runware task endpoint. It satisfies videogen.Provider
// for video tasks and additionally exposes synchronous image inference.
type Client interface {
	videogen.Provider
	GenerateImage(ctx context.Context, req ImageRequest) ([]ImageResult, error)
	UploadImage(ctx context.Context, path string) (string, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	imageModel string
	videoModel string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	apiKey := strings.TrimSpace(os.Getenv("RUNWARE_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing RUNWARE_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("RUNWARE_BASE_URL"))
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	imageModel := strings.TrimSpace(os.Getenv("RUNWARE_IMAGE_MODEL"))
	if imageModel == "" {
		imageModel = defaultImageModel
	}
	videoModel := strings.TrimSpace(os.Getenv("RUNWARE_VIDEO_MODEL"))
	if videoModel == "" {
		videoModel = defaultVideoModel
	}

	timeoutSec := 300
	if v := os.Getenv("RUNWARE_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 3
	if v := os.Getenv("RUNWARE_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &client{
		log:        log.With("service", "RunwareClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		imageModel: imageModel,
		videoModel: videoModel,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

type runwareHTTPError struct {
	StatusCode int
	Body       string
}

func (e *runwareHTTPError) Error() string {
	return fmt.Sprintf("runware http %d: %s", e.StatusCode, e.Body)
}

func (e *runwareHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// taskError is a vendor-reported per-task failure from the errors array.
type taskError struct {
	TaskUUID string `json:"taskUUID"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Err      string `json:"error"`
}

func (e taskError) text() string {
	if strings.TrimSpace(e.Message) != "" {
		return e.Message
	}
	if strings.TrimSpace(e.Err) != "" {
		return e.Err
	}
	if strings.TrimSpace(e.Code) != "" {
		return e.Code
	}
	return "unknown task error"
}

type taskEnvelope struct {
	Data   []json.RawMessage `json:"data"`
	Errors []taskError       `json:"errors"`
}

func (c *client) doOnce(ctx context.Context, tasks []any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(tasks); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &runwareHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, tasks []any) (taskEnvelope, error) {
	var env taskEnvelope
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return env, ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, tasks)
		if err == nil {
			if uErr := json.Unmarshal(raw, &env); uErr != nil {
				return env, fmt.Errorf("runware decode error: %w; raw=%s", uErr, string(raw))
			}
			return env, nil
		}

		if !httpx.IsRetryableError(err) {
			return env, err
		}
		if attempt == c.maxRetries {
			return env, err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("Runware request retrying",
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return env, fmt.Errorf("unreachable retry loop")
}

// -------------------- Image inference --------------------

type imageInferenceTask struct {
	TaskType        string   `json:"taskType"`
	TaskUUID        string   `json:"taskUUID"`
	Model           string   `json:"model"`
	PositivePrompt  string   `json:"positivePrompt"`
	NegativePrompt  string   `json:"negativePrompt,omitempty"`
	Width           int      `json:"width"`
	Height          int      `json:"height"`
	NumberResults   int      `json:"numberResults"`
	OutputType      string   `json:"outputType"`
	OutputFormat    string   `json:"outputFormat,omitempty"`
	ReferenceImages []string `json:"referenceImages,omitempty"`
}

type imageInferenceResult struct {
	TaskUUID  string `json:"taskUUID"`
	ImageUUID string `json:"imageUUID"`
	ImageURL  string `json:"imageURL"`
}

func (c *client) GenerateImage(ctx context.Context, req ImageRequest) ([]ImageResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("image prompt required")
	}

	width, height := req.Width, req.Height
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 1024
	}
	n := req.NumberResults
	if n <= 0 {
		n = 1
	}

	task := imageInferenceTask{
		TaskType:        "imageInference",
		TaskUUID:        uuid.NewString(),
		Model:           c.imageModel,
		PositivePrompt:  prompt,
		NegativePrompt:  strings.TrimSpace(req.NegativePrompt),
		Width:           width,
		Height:          height,
		NumberResults:   n,
		OutputType:      "URL",
		OutputFormat:    "PNG",
		ReferenceImages: req.ReferenceImages,
	}

	env, err := c.do(ctx, []any{task})
	if err != nil {
		return nil, err
	}
	if len(env.Errors) > 0 {
		return nil, fmt.Errorf("runware image inference: %s", env.Errors[0].text())
	}

	out := make([]ImageResult, 0, len(env.Data))
	for _, raw := range env.Data {
		var item imageInferenceResult
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		if strings.TrimSpace(item.ImageURL) == "" {
			continue
		}
		out = append(out, ImageResult{ImageUUID: item.ImageUUID, URL: item.ImageURL})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("runware image inference returned no image urls")
	}
	return out, nil
}

// -------------------- Image upload --------------------

type imageUploadTask struct {
	TaskType string `json:"taskType"`
	TaskUUID string `json:"taskUUID"`
	Image    string `json:"image"`
}

type imageUploadResult struct {
	ImageUUID string `json:"imageUUID"`
}

// UploadImage pushes a local file to Runware and returns the vendor image
// UUID, usable later as a reference or first frame.
func (c *client) UploadImage(ctx context.Context, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image %s: %w", path, err)
	}

	task := imageUploadTask{
		TaskType: "imageUpload",
		TaskUUID: uuid.NewString(),
		Image:    base64.StdEncoding.EncodeToString(raw),
	}

	env, err := c.do(ctx, []any{task})
	if err != nil {
		return "", err
	}
	if len(env.Errors) > 0 {
		return "", fmt.Errorf("runware image upload: %s", env.Errors[0].text())
	}
	for _, item := range env.Data {
		var res imageUploadResult
		if err := json.Unmarshal(item, &res); err != nil {
			continue
		}
		if strings.TrimSpace(res.ImageUUID) != "" {
			return res.ImageUUID, nil
		}
	}
	return "", fmt.Errorf("runware image upload returned no imageUUID")
}

// -------------------- Video inference (videogen.Provider) --------------------

type frameImage struct {
	InputImage string `json:"inputImage"`
	Frame      string `json:"frame"`
}

type videoInferenceTask struct {
	TaskType       string       `json:"taskType"`
	TaskUUID       string       `json:"taskUUID"`
	Model          string       `json:"model"`
	PositivePrompt string       `json:"positivePrompt"`
	Duration       int          `json:"duration"`
	Width          int          `json:"width"`
	Height         int          `json:"height"`
	OutputType     string       `json:"outputType"`
	OutputFormat   string       `json:"outputFormat"`
	DeliveryMethod string       `json:"deliveryMethod"`
	NumberResults  int          `json:"numberResults"`
	FrameImages    []frameImage `json:"frameImages,omitempty"`
}

type videoTaskResult struct {
	TaskUUID string `json:"taskUUID"`
	Status   string `json:"status"`
	VideoURL string `json:"videoURL"`
}

func (r videoTaskResult) resultURL() string {
	return strings.TrimSpace(r.VideoURL)
}

// Submit starts an async videoInference task and returns its taskUUID.
func (c *client) Submit(ctx context.Context, req videogen.SceneRequest) (string, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return "", fmt.Errorf("video prompt required")
	}

	width, height := req.Width, req.Height
	if width <= 0 {
		width = 1920
	}
	if height <= 0 {
		height = 1080
	}
	duration := req.Duration
	if duration <= 0 {
		duration = 5
	}

	taskUUID := uuid.NewString()
	task := videoInferenceTask{
		TaskType:       "videoInference",
		TaskUUID:       taskUUID,
		Model:          c.videoModel,
		PositivePrompt: prompt,
		Duration:       duration,
		Width:          width,
		Height:         height,
		OutputType:     "URL",
		OutputFormat:   "MP4",
		DeliveryMethod: "async",
		NumberResults:  1,
	}

	env, err := c.do(ctx, []any{task})
	if err != nil {
		return "", err
	}
	if len(env.Errors) > 0 {
		return "", fmt.Errorf("runware video inference: %s", env.Errors[0].text())
	}

	// The async ack may echo a different taskUUID; trust the vendor's.
	for _, raw := range env.Data {
		var res videoTaskResult
		if err := json.Unmarshal(raw, &res); err != nil {
			continue
		}
		if strings.TrimSpace(res.TaskUUID) != "" {
			return res.TaskUUID, nil
		}
	}
	return taskUUID, nil
}

type getResponseTask struct {
	TaskType string `json:"taskType"`
	TaskUUID string `json:"taskUUID"`
}

// Poll checks one async task via getResponse. A present videoURL means the
// task finished even when the vendor omits an explicit status field.
func (c *client) Poll(ctx context.Context, taskID string) (videogen.PollResult, error) {
	task := getResponseTask{TaskType: "getResponse", TaskUUID: taskID}

	env, err := c.do(ctx, []any{task})
	if err != nil {
		return videogen.PollResult{}, err
	}

	for _, e := range env.Errors {
		if e.TaskUUID == "" || e.TaskUUID == taskID {
			return videogen.PollResult{
				Status:       videogen.ProviderFailed,
				ErrorMessage: e.text(),
			}, nil
		}
	}

	var match *videoTaskResult
	for _, raw := range env.Data {
		var res videoTaskResult
		if err := json.Unmarshal(raw, &res); err != nil {
			continue
		}
		if res.TaskUUID == taskID {
			match = &res
			break
		}
		if match == nil {
			match = &res
		}
	}
	if match == nil {
		return videogen.PollResult{Status: videogen.ProviderProcessing}, nil
	}

	if url := match.resultURL(); url != "" {
		return videogen.PollResult{Status: videogen.ProviderSucceeded, ResultURL: url}, nil
	}

	switch strings.ToLower(strings.TrimSpace(match.Status)) {
	case "", "processing", "pending", "scheduled":
		return videogen.PollResult{Status: videogen.ProviderProcessing}, nil
	case "success", "completed", "done":
		// Terminal without a URL; surface as a vendor failure.
		return videogen.PollResult{
			Status:       videogen.ProviderFailed,
			ErrorMessage: "task completed without a video url",
		}, nil
	case "error", "failed":
		return videogen.PollResult{
			Status:       videogen.ProviderFailed,
			ErrorMessage: "task failed",
		}, nil
	default:
		return videogen.PollResult{
			Status:       videogen.ProviderFailed,
			ErrorMessage: fmt.Sprintf("unknown task status %q", match.Status),
		}, nil
	}
}

// Download streams a finished artifact to destPath.
func (c *client) Download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &runwareHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(destPath)
		return err
	}
	return f.Close()
}
