// Package simulation submits a household to the fiscal simulator and reads
// back the computed benefits.
package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dukerupert/benefitform/internal/model"
)

var ErrRejected = errors.New("simulation rejected household")

type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Result carries the computed household plus the raw exchange for the
// calculation log.
type Result struct {
	Household model.Household
	Request   []byte
	Response  []byte
	Status    int
	Duration  time.Duration
}

type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:50000"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{http: client, logger: logger}
}

type errorBody struct {
	Error any `json:"error"`
}

// Calculate posts h to /calculate. On a non-2xx answer the returned Result
// still carries the exchange so it can be recorded.
func (c *Client) Calculate(ctx context.Context, h model.Household) (Result, error) {
	body, err := json.Marshal(h)
	if err != nil {
		return Result{}, fmt.Errorf("encode household: %w", err)
	}

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/calculate")
	res := Result{Request: body, Duration: time.Since(start)}
	if err != nil {
		return res, fmt.Errorf("calculate request: %w", err)
	}
	res.Status = resp.StatusCode()
	res.Response = resp.Body()

	c.logger.Debug("calculate", "status", res.Status, "duration", res.Duration)

	if resp.IsError() {
		var eb errorBody
		if json.Unmarshal(res.Response, &eb) == nil && eb.Error != nil {
			return res, fmt.Errorf("%w: status %d: %v", ErrRejected, res.Status, eb.Error)
		}
		return res, fmt.Errorf("%w: status %d", ErrRejected, res.Status)
	}

	if err := json.Unmarshal(res.Response, &res.Household); err != nil {
		return res, fmt.Errorf("decode calculation: %w", err)
	}
	return res, nil
}
