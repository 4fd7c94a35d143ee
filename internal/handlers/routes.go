package handlers

import (
	"net/http"

	"summerfest/internal/security"
)

// NewRouter wires the JSON endpoints. Scan endpoints are rate limited per
// client when limiter is non-nil.
func NewRouter(checkins *CheckInHandler, families *FamilyHandler, metrics http.Handler, limiter *security.RateLimiter) http.Handler {
	scan := func(h http.HandlerFunc) http.Handler {
		if limiter == nil {
			return h
		}
		return limiter.Middleware(h)
	}

	mux := http.NewServeMux()

	mux.Handle("POST /checkin", scan(checkins.CheckIn))
	mux.Handle("GET /checkin/preview", scan(checkins.Preview))
	mux.HandleFunc("POST /attendance/{childID}/checkout", checkins.CheckOut)
	mux.HandleFunc("POST /attendance/{childID}/status", checkins.ChangeStatus)

	mux.HandleFunc("GET /families/{id}/summary", families.Summary)
	mux.HandleFunc("POST /families/{id}/payments", families.RecordPayment)
	mux.HandleFunc("GET /families/{id}/ledger", families.Ledger)

	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return Recover(Logging(mux))
}
