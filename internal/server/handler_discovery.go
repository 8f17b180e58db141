package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "gosweep status API",
		Version:     "v1",
		Description: "Progress and run ledger of a parameter sweep",
		Endpoints: []endpointInfo{
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
			{"/api/v1/progress", []string{"GET"}, "Run counts of the current batch by state"},
			{"/api/v1/runs", []string{"GET"}, "Ledger rows of the current batch"},
			{"/api/v1/batches", []string{"GET"}, "Batch history, newest first. Accepts ?state=, ?limit=, ?offset="},
			{"/api/v1/batches/{id}", []string{"GET"}, "Single batch"},
			{"/api/v1/batches/{id}/runs", []string{"GET"}, "Ledger rows of one batch"},
			{"/metrics", []string{"GET"}, "Prometheus metrics"},
		},
	})
}
