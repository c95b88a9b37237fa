package apihttp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"energy-balance/internal/collector"
)

// CollectRunHandler triggers a single collection cycle on demand, outside
// the scheduler's cadence. Useful after an upstream outage to pull the
// current snapshot without waiting for the next tick.
type CollectRunHandler struct {
	collector *collector.Collector
	logger    *log.Logger
}

// NewCollectRunHandler constructs a CollectRunHandler.
func NewCollectRunHandler(c *collector.Collector, logger *log.Logger) (*CollectRunHandler, error) {
	if c == nil {
		return nil, errors.New("collect handler: nil collector")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CollectRunHandler{collector: c, logger: logger}, nil
}

type collectRunResponse struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
	Slot    string `json:"slot,omitempty"`
}

// ServeHTTP handles POST /api/v1/collect/run.
func (h *CollectRunHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	result, err := h.collector.CollectOnce(r.Context())
	if err != nil {
		h.logger.Printf("api: manual collection failed: %v", err)
		http.Error(w, "collection error", http.StatusBadGateway)
		return
	}

	resp := collectRunResponse{Applied: result.Applied, Reason: string(result.Reason)}
	if result.Record != nil {
		resp.Slot = result.Record.Timestamp.Format(time.RFC3339)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
