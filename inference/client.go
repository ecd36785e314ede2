package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ariebrainware/patient-portal/config"
	"github.com/ariebrainware/patient-portal/datasource"
)

const maxResponseBytes = 1 << 20

// Detection is one region found by the detection model.
type Detection struct {
	ClassID    int       `json:"class_id" example:"3"`
	Confidence float64   `json:"confidence" example:"0.91"`
	BBox       []float64 `json:"bbox,omitempty" swaggertype:"array,number"`
}

// DetectionResult is the optional detection payload of an inference response.
type DetectionResult struct {
	AnnotatedImageURL string      `json:"annotated_image_url"`
	Detections        []Detection `json:"detections"`
}

// Response is the body of a successful POST /upload.
type Response struct {
	UploadedImageURL string           `json:"uploaded_image_url"`
	Result           string           `json:"result"`
	Confidence       *float64         `json:"confidence,omitempty"`
	Detection        *DetectionResult `json:"detection,omitempty"`
}

// Uploader sends one image to the inference service.
type Uploader interface {
	Upload(ctx context.Context, fileName string, image io.Reader) (Response, error)
}

// Client is the HTTP Uploader. Its errors use the datasource error types.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// NewClientFromConfig builds a client from INFERENCE_URL and INFERENCE_TIMEOUT.
func NewClientFromConfig(cfg *config.Config) *Client {
	return NewClient(cfg.InferenceURL, cfg.InferenceTimeout)
}

// Upload posts image as the multipart field "file".
func (c *Client) Upload(ctx context.Context, fileName string, image io.Reader) (Response, error) {
	var out Response

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return out, err
	}
	if _, err := io.Copy(part, image); err != nil {
		return out, fmt.Errorf("read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return out, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", body)
	if err != nil {
		return out, fmt.Errorf("%w: build request: %v", datasource.ErrTransport, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("%w: POST /upload: %v", datasource.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return out, fmt.Errorf("%w: read /upload: %v", datasource.ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return out, &datasource.StatusError{Code: resp.StatusCode, Path: "/upload", Message: e.Error}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: /upload: %v", datasource.ErrMalformed, err)
	}
	if out.Result == "" && out.UploadedImageURL == "" {
		return out, fmt.Errorf("%w: /upload: missing result and uploaded_image_url", datasource.ErrMalformed)
	}
	return out, nil
}
