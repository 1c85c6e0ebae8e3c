package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// adminOverview is a coarse count of distinct velocity keys currently
// tracked, read-only introspection into the bounded counters the engine
// already maintains.
type adminOverview struct {
	TotalUniqueIPs       int   `json:"total_unique_ips"`
	TotalUniqueDomains   int   `json:"total_unique_domains"`
	RecentSignupsTracked int   `json:"recent_signups_tracked"`
	TimestampUnix        int64 `json:"timestamp_unix"`
}

func adminOverviewHandler(app *appContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ipKeys, err := app.store.ScanKeys(ctx, "velocity:ip:*")
		if err != nil {
			http.Error(w, "Failed to fetch statistics", http.StatusInternalServerError)
			return
		}
		domainKeys, err := app.store.ScanKeys(ctx, "velocity:domain:*")
		if err != nil {
			http.Error(w, "Failed to fetch statistics", http.StatusInternalServerError)
			return
		}

		total := 0
		recentKeys, err := app.store.ScanKeys(ctx, "recent:*")
		if err == nil {
			for _, key := range recentKeys {
				members, err := app.store.RecentMembers(ctx, key)
				if err == nil {
					total += len(members)
				}
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(adminOverview{
			TotalUniqueIPs:       len(ipKeys),
			TotalUniqueDomains:   len(domainKeys),
			RecentSignupsTracked: total,
			TimestampUnix:        time.Now().Unix(),
		})
	}
}

// ipActivity is one row of the recent-ips admin view, with the counter
// value and its remaining TTL.
type ipActivity struct {
	IP          string `json:"ip"`
	Count       int64  `json:"count"`
	TTLSeconds  int64  `json:"ttl_seconds"`
}

func adminRecentIPsHandler(app *appContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		ctx := r.Context()
		keys, err := app.store.ScanKeys(ctx, "velocity:ip:*")
		if err != nil {
			http.Error(w, "Failed to fetch IP statistics", http.StatusInternalServerError)
			return
		}

		activity := make([]ipActivity, 0, len(keys))
		for _, key := range keys {
			value, ok, err := app.store.Get(ctx, key)
			if err != nil || !ok {
				continue
			}
			count, _ := strconv.ParseInt(string(value), 10, 64)
			ttl, _, _ := app.store.TTL(ctx, key)
			activity = append(activity, ipActivity{
				IP:         strings.TrimPrefix(key, "velocity:ip:"),
				Count:      count,
				TTLSeconds: int64(ttl.Seconds()),
			})
		}

		sortByCountDesc(activity)
		if len(activity) > limit {
			activity = activity[:limit]
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"ip_activity":   activity,
			"total_tracked": len(keys),
		})
	}
}

func sortByCountDesc(items []ipActivity) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].Count > items[j-1].Count; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

// adminRecentEmailsHandler exposes a single domain's recent-email window
// for debugging pattern detection.
func adminRecentEmailsHandler(app *appContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		domain := r.URL.Query().Get("domain")
		if domain == "" {
			http.Error(w, "Missing 'domain' query parameter", http.StatusBadRequest)
			return
		}

		members, err := app.store.RecentMembers(r.Context(), "recent:"+domain)
		if err != nil {
			http.Error(w, "Failed to fetch recent emails", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"recent_emails": members,
			"count":         len(members),
		})
	}
}

// adminClearVelocityHandler implements POST /admin/velocity/{scope}/{value},
// generalized to ip|domain scope since velocity limits apply to both.
func adminClearVelocityHandler(app *appContext) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		rest := strings.TrimPrefix(r.URL.Path, "/admin/velocity/")
		scope, value, ok := strings.Cut(rest, "/")
		if !ok || (scope != "ip" && scope != "domain") || value == "" {
			http.Error(w, "Path must be /admin/velocity/{ip|domain}/{value}", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		pattern := "velocity:" + scope + ":" + value + ":*"
		keys, err := app.store.ScanKeys(ctx, pattern)
		if err != nil {
			http.Error(w, "Failed to clear velocity data", http.StatusInternalServerError)
			return
		}

		cleared := 0
		for _, key := range keys {
			if existed, err := app.store.Delete(ctx, key); err == nil && existed {
				cleared++
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"success": cleared > 0,
			"cleared": cleared,
		})
	}
}
