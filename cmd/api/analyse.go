package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"signalguard/internal/models"
)

// analyseRequest is the POST body for /analyse and /analyse/fast.
type analyseRequest struct {
	Email     string `json:"email"`
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// analyseHandler builds the POST /analyse (FULL mode) and POST
// /analyse/fast (FAST mode) handlers off the same decode/score/respond
// shape, differing only in AnalyseMode and the fast path's enrichment
// enqueue.
func analyseHandler(app *appContext, mode models.AnalyseMode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req analyseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"malformed request body"}`, http.StatusBadRequest)
			return
		}

		input := models.EmailInput{
			RawEmail:  req.Email,
			IP:        req.IP,
			UserAgent: req.UserAgent,
			RequestID: r.Header.Get("X-Request-ID"),
		}

		envelope, err := app.engine.Analyse(r.Context(), input, mode)
		if err != nil {
			var hardReject *models.HardReject
			if errors.As(err, &hardReject) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{
					"error":  hardReject.Code,
					"detail": hardReject.Detail,
				})
				return
			}
			http.Error(w, `{"error":"analysis failed"}`, http.StatusInternalServerError)
			return
		}

		if mode == models.ModeFast && app.settings.BackgroundEnrichmentEnabled {
			jobID, err := app.queue.Enqueue(r.Context(), input, envelope)
			if err != nil {
				app.logger.Sugar().Warnw("failed to enqueue enrichment job", "error", err)
			} else {
				envelope.Enrichment = models.Enrichment{Status: models.EnrichmentPending, JobID: models.StrPtr(jobID)}
			}
		}

		app.webhooks.DeliverIfNotable(envelope, time.Now().Unix())

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(envelope)
	}
}
