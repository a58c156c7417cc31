package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/collectiq-ai/collectiq/internal/metrics"
)

const (
	apiURL         = "https://openrouter.ai/api/v1/chat/completions"
	requestTimeout = 30 * time.Second
	maxRetryAfter  = 30 * time.Second
)

// jsonOnlyReminder is appended to every system prompt. Not all models honor a
// structured-output mode, so the instruction goes in the prompt itself.
const jsonOnlyReminder = "\n\nIMPORTANT: Reply with ONLY the raw JSON object/array described above. " +
	"No markdown, no code fences, no explanation text - just the JSON."

// Client is the gateway to OpenRouter's chat completion API. Transport and
// remote-service failures are logged and converted to nil results; callers
// must treat nil as "extraction unavailable", never as "nothing found".
type Client struct {
	apiKey  string
	referer string
	title   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient builds a gateway client. A missing API key is a deployment
// defect, not a runtime condition, so it is returned as an error.
func NewClient(apiKey, referer, title string, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openrouter: OPENROUTER_API_KEY is not set")
	}
	return &Client{
		apiKey:  apiKey,
		referer: referer,
		title:   title,
		baseURL: apiURL,
		client:  &http.Client{Timeout: requestTimeout},
		logger:  logger,
	}, nil
}

// SetTestTransport points the client at a test server.
func (c *Client) SetTestTransport(baseURL string) {
	c.baseURL = baseURL
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Invoke sends a system+user prompt pair to the given model and returns the
// parsed JSON value from its reply, or nil when the model is unavailable or
// returned something unusable. Retries exactly once on a 429, honoring the
// server-supplied Retry-After before giving up.
func (c *Client) Invoke(ctx context.Context, model, systemPrompt, userPrompt string) (result any) {
	defer func() {
		outcome := "unavailable"
		if result != nil {
			outcome = "ok"
		}
		metrics.GatewayCalls.WithLabelValues(outcome).Inc()
	}()

	if model == "" {
		model = DefaultModel
	}

	body, err := json.Marshal(request{
		Model: model,
		Messages: []message{
			{Role: "system", Content: systemPrompt + jsonOnlyReminder},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.1,
	})
	if err != nil {
		c.logger.Error("llm marshal request failed", "model", model, "error", err)
		return nil
	}

	for attempt := 1; attempt <= 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
		if err != nil {
			c.logger.Error("llm create request failed", "model", model, "error", err)
			return nil
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("HTTP-Referer", c.referer)
		req.Header.Set("X-Title", c.title)

		resp, err := c.client.Do(req)
		if err != nil {
			c.logger.Error("llm call failed", "model", model, "error", err)
			return nil
		}

		// Rate limited: wait and retry once.
		if resp.StatusCode == http.StatusTooManyRequests && attempt == 1 {
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()
			c.logger.Warn("llm rate limited, retrying", "model", model, "retry_after", retryAfter)
			if err := sleep(ctx, retryAfter); err != nil {
				return nil
			}
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			c.logger.Error("llm read response failed", "model", model, "error", err)
			return nil
		}

		var apiResp response
		if err := json.Unmarshal(respBody, &apiResp); err != nil {
			c.logger.Error("llm decode response failed", "model", model, "status", resp.StatusCode, "error", err)
			return nil
		}

		if apiResp.Error != nil {
			c.logger.Error("llm api error", "model", model, "code", apiResp.Error.Code, "message", apiResp.Error.Message)
			return nil
		}

		if len(apiResp.Choices) == 0 || apiResp.Choices[0].Message.Content == "" {
			c.logger.Warn("llm empty content", "model", model)
			return nil
		}

		content := apiResp.Choices[0].Message.Content
		parsed := ExtractJSON(content)
		if parsed == nil {
			c.logger.Warn("llm response had no extractable JSON", "model", model, "preview", preview(content))
			return nil
		}

		c.logger.Debug("llm call ok", "model", model)
		return parsed
	}

	return nil
}

// parseRetryAfter handles both delay-seconds and HTTP-date forms, with a
// 5 second default and a hard cap.
func parseRetryAfter(value string) time.Duration {
	d := 5 * time.Second
	if value != "" {
		if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
			d = time.Duration(seconds) * time.Second
		} else if when, err := http.ParseTime(value); err == nil {
			if until := time.Until(when); until > 0 {
				d = until
			}
		}
	}
	if d > maxRetryAfter {
		d = maxRetryAfter
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func preview(s string) string {
	const limit = 300
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
