package handlers

import (
	"net/http"
	"time"
)

const (
	STATUS_HEALTHY = "healthy"
)

// HealthResponse is the liveness answer of the trigger server.
// Processing is false when the server was started without a store.
type HealthResponse struct {
	Status     string    `json:"status"`
	Processing bool      `json:"processing"`
	Timestamp  time.Time `json:"timestamp"`
	Build      string    `json:"build,omitempty"`
	BuildDate  string    `json:"build_date,omitempty"`
}

func (h *Handlers) HandleHealth(req *Request, w http.ResponseWriter) {
	h.writeJSON(req, w, HealthResponse{
		Status:     STATUS_HEALTHY,
		Processing: h.processor != nil,
		Timestamp:  time.Now().UTC(),
		Build:      h.build,
		BuildDate:  h.buildDate,
	}, http.StatusOK)
}
