// Package vision talks to the remote vision processor that captions
// sampled video frames. Frames are sent in batches, one HTTP request per
// batch, and the per-frame answers carry the originating frame index so
// the batch pipeline can restore global order.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/entropic-labs/recall-api/internal/domain"
	"github.com/entropic-labs/recall-api/internal/metrics"
)

// Common errors returned by the vision client
var (
	// ErrMalformedResponse is returned when the processor's reply lacks
	// the expected results field.
	ErrMalformedResponse = errors.New("unexpected vision response format")

	// ErrEmptyEndpoint is returned when constructing a client without an
	// endpoint URL.
	ErrEmptyEndpoint = errors.New("vision endpoint URL cannot be empty")
)

// defaultPrompt asks the processor to describe each frame and pull out any
// readable text, one answer per image.
const defaultPrompt = "For each image, describe what the user is looking at, and extract any readable text " +
	"(prices, labels, signs). Return one JSON object per image."

// ClientConfig holds configuration for the vision client
type ClientConfig struct {
	// EndpointURL is the batch captioning endpoint.
	EndpointURL string

	// Prompt overrides the default captioning prompt when non-empty.
	Prompt string

	// RequestTimeout bounds a single batch request. Zero means 120s.
	RequestTimeout time.Duration

	// RequestsPerSecond rate-limits outgoing batch requests. Zero or
	// negative disables the limiter.
	RequestsPerSecond float64
}

// Client sends frame batches to the remote vision processor.
type Client struct {
	config  ClientConfig
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a vision Client.
func NewClient(config ClientConfig, logger *slog.Logger) (*Client, error) {
	if config.EndpointURL == "" {
		return nil, ErrEmptyEndpoint
	}

	if config.Prompt == "" {
		config.Prompt = defaultPrompt
	}

	if config.RequestTimeout <= 0 {
		config.RequestTimeout = 120 * time.Second
	}

	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.RequestTimeout},
		limiter: limiter,
		logger:  logger.With("component", "vision_client"),
	}, nil
}

// batchPayload is the request body for one batch: the prompt, the frames
// as base64 JPEGs, and per-frame metadata echoed back by the processor.
type batchPayload struct {
	Prompt    string      `json:"prompt"`
	ImagesB64 []string    `json:"images_b64"`
	Meta      []frameMeta `json:"meta"`
}

type frameMeta struct {
	FrameIndex int     `json:"frame_index"`
	TimestampS float64 `json:"timestamp_s"`
}

// Annotation is one raw result record from the processor. FrameIndex is a
// pointer so a record that omitted its correlating index is distinguishable
// from one answering frame 0; the reassembler rejects the former.
type Annotation struct {
	FrameIndex *int    `json:"frame_index"`
	TimestampS float64 `json:"timestamp_s"`
	Caption    string  `json:"caption"`
	TextSeen   string  `json:"text_seen"`
}

// SendBatch posts one frame batch to the processor and returns its result
// records. The response must contain a results list or the call fails.
func (c *Client) SendBatch(ctx context.Context, frames []domain.Frame) ([]Annotation, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	payload, err := c.buildPayload(frames)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.EndpointURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.BatchesDispatchedTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("batch request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.BatchesDispatchedTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("vision processor returned status %d", resp.StatusCode)
	}

	var decoded map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		metrics.BatchesDispatchedTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to decode vision response: %w", err)
	}

	raw, ok := decoded["results"]
	if !ok {
		metrics.BatchesDispatchedTotal.WithLabelValues("error").Inc()
		return nil, ErrMalformedResponse
	}

	var results []Annotation
	if err := json.Unmarshal(raw, &results); err != nil {
		metrics.BatchesDispatchedTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: results is not a list", ErrMalformedResponse)
	}

	metrics.BatchesDispatchedTotal.WithLabelValues("ok").Inc()
	metrics.BatchDispatchDuration.Observe(time.Since(start).Seconds())

	c.logger.Debug("batch dispatched",
		"frames", len(frames),
		"results", len(results),
		"duration", time.Since(start))

	return results, nil
}

// buildPayload assembles the request body, reading and base64-encoding
// each frame's JPEG.
func (c *Client) buildPayload(frames []domain.Frame) (*batchPayload, error) {
	payload := &batchPayload{
		Prompt:    c.config.Prompt,
		ImagesB64: make([]string, 0, len(frames)),
		Meta:      make([]frameMeta, 0, len(frames)),
	}

	for _, frame := range frames {
		data, err := os.ReadFile(frame.JPEGPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read frame %d: %w", frame.Index, err)
		}
		payload.ImagesB64 = append(payload.ImagesB64, base64.StdEncoding.EncodeToString(data))
		payload.Meta = append(payload.Meta, frameMeta{
			FrameIndex: frame.Index,
			TimestampS: frame.TimestampS,
		})
	}

	return payload, nil
}
