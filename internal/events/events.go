// Package events is the NATS bus client: raw transcription payloads come in,
// analysis triggers and completion announcements go out.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Bus subjects.
const (
	// SubjectSTTCompleted carries raw transcription output for a call.
	SubjectSTTCompleted = "collectiq.stt.completed"
	// SubjectCallTranscribed triggers analysis of a transcribed call.
	SubjectCallTranscribed = "collectiq.call.transcribed"
	// SubjectCallAnalyzed announces a completed analysis.
	SubjectCallAnalyzed = "collectiq.call.analyzed"
)

// STTCompleted is the payload on SubjectSTTCompleted: undiarized segments
// straight from the transcription engine.
type STTCompleted struct {
	CallID   string `json:"call_id"`
	Model    string `json:"model,omitempty"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// CallTranscribed is the payload on SubjectCallTranscribed.
type CallTranscribed struct {
	CallID string `json:"call_id"`
	Model  string `json:"model,omitempty"`
}

// CallAnalyzed is the payload on SubjectCallAnalyzed.
type CallAnalyzed struct {
	CallID    string `json:"call_id"`
	RiskScore int    `json:"risk_score"`
	Outcome   string `json:"outcome"`
	Model     string `json:"model"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
