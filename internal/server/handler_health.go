package server

import (
	"net/http"
	"runtime"
	"time"
)

// Version is reported by /health.
const Version = "0.1.0"

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Batch     string `json:"batch,omitempty"`
	Ledger    string `json:"ledger"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	ledger := "disabled"
	if s.store != nil {
		ledger = "available"
	}
	respondOK(w, reqID, healthResponse{
		Status:    "healthy",
		Version:   Version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Batch:     s.batchID,
		Ledger:    ledger,
	})
}
