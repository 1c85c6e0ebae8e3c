package main

import (
	"encoding/json"
	"net/http"
	"strings"
)

// resultsHandler serves GET /results/{job_id}, polling the
// enrichment queue's per-job result key.
func resultsHandler(app *appContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		jobID := strings.TrimPrefix(r.URL.Path, "/results/")
		if jobID == "" || jobID == r.URL.Path {
			http.Error(w, "Missing job_id path segment", http.StatusBadRequest)
			return
		}

		envelope, ok, err := app.queue.Result(r.Context(), jobID)
		if err != nil {
			http.Error(w, "Failed to fetch result", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "Job not found", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(envelope)
	}
}
