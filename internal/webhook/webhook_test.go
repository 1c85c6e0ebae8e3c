package webhook

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"signalguard/internal/models"
)

func TestDispatcher_DeliverIfNotableSkipsLowRisk(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	d := NewDispatcher([]string{server.URL}, true, zap.NewNop())
	envelope := models.Envelope{RiskSummary: models.RiskSummary{Level: models.LevelLow}}
	d.DeliverIfNotable(envelope, time.Now().Unix())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestDispatcher_DeliverIfNotableFiresForMediumAndHigh(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewDispatcher([]string{server.URL}, true, zap.NewNop())
	envelope := models.Envelope{RiskSummary: models.RiskSummary{Level: models.LevelHigh}}
	d.DeliverIfNotable(envelope, time.Now().Unix())

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestDispatcher_NoURLsConfiguredIsNoop(t *testing.T) {
	d := NewDispatcher(nil, true, zap.NewNop())
	envelope := models.Envelope{RiskSummary: models.RiskSummary{Level: models.LevelHigh}}
	d.DeliverIfNotable(envelope, time.Now().Unix())
	// no assertion beyond not panicking or blocking; DeliverIfNotable
	// returns immediately when there are no configured URLs.
}

func TestDispatcher_RetriesOn5xxThenStops(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	d := NewDispatcher([]string{server.URL}, true, zap.NewNop())
	d.maxRetries = 2
	envelope := models.Envelope{RiskSummary: models.RiskSummary{Level: models.LevelMedium}}
	d.DeliverIfNotable(envelope, time.Now().Unix())

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDispatcher_StopsRetryingOn4xx(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	d := NewDispatcher([]string{server.URL}, true, zap.NewNop())
	d.maxRetries = 3
	envelope := models.Envelope{RiskSummary: models.RiskSummary{Level: models.LevelHigh}}
	d.DeliverIfNotable(envelope, time.Now().Unix())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
