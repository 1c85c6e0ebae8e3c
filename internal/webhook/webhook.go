// Package webhook delivers MEDIUM/HIGH envelopes to configured URLs with
// exponential backoff. Delivery is at-least-once and best-effort:
// failures here never affect the synchronous analyse response.
package webhook

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"signalguard/internal/models"
)

// Payload is the envelope wrapper delivered to every configured URL.
type Payload struct {
	Event     string          `json:"event"`
	Timestamp int64           `json:"timestamp"`
	Data      models.Envelope `json:"data"`
}

// Dispatcher fires webhook deliveries in the background so the caller's
// synchronous response is never delayed by a slow or unreachable
// endpoint.
type Dispatcher struct {
	urls       []string
	client     *http.Client
	logger     *zap.Logger
	maxRetries int
}

func NewDispatcher(urls []string, tlsVerify bool, logger *zap.Logger) *Dispatcher {
	transport := &http.Transport{}
	if !tlsVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Dispatcher{
		urls:       urls,
		client:     &http.Client{Timeout: 10 * time.Second, Transport: transport},
		logger:     logger,
		maxRetries: 4,
	}
}

// DeliverIfNotable fires Send in a detached goroutine when envelope's
// level warrants it (MEDIUM or HIGH). Callers should not wait on it.
func (d *Dispatcher) DeliverIfNotable(envelope models.Envelope, createdAtUnix int64) {
	if envelope.RiskSummary.Level == models.LevelLow || len(d.urls) == 0 {
		return
	}
	payload := Payload{Event: "signup.risk_scored", Timestamp: createdAtUnix, Data: envelope}
	go d.deliverAll(payload)
}

func (d *Dispatcher) deliverAll(payload Payload) {
	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Warn("webhook payload marshal failed", zap.Error(err))
		return
	}
	for _, url := range d.urls {
		d.deliverOne(url, body)
	}
}

func (d *Dispatcher) deliverOne(url string, body []byte) {
	backoff := 500 * time.Millisecond
	for attempt := 0; attempt < d.maxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
			resp, doErr := d.client.Do(req)
			if doErr == nil {
				resp.Body.Close()
				cancel()
				if resp.StatusCode < 500 {
					return
				}
			} else {
				err = doErr
			}
		}
		cancel()
		d.logger.Warn("webhook delivery attempt failed",
			zap.String("url", url), zap.Int("attempt", attempt+1), zap.Error(err))

		if backoff > 10*time.Second {
			backoff = 10 * time.Second
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	d.logger.Error("webhook delivery exhausted retries", zap.String("url", url))
}
