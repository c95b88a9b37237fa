package apihttp

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"energy-balance/internal/audit"
	"energy-balance/internal/auth"
	"energy-balance/internal/feed"
	"energy-balance/internal/interval/application"
	"energy-balance/internal/interval/domain"
)

// RederiveHandler triggers bulk re-derivation over a historical range.
type RederiveHandler struct {
	reconciler *application.Reconciler
	source     feed.HistoricalSource
	auditor    audit.Logger
	logger     *log.Logger
}

// NewRederiveHandler constructs a RederiveHandler.
func NewRederiveHandler(reconciler *application.Reconciler, source feed.HistoricalSource, auditor audit.Logger, logger *log.Logger) (*RederiveHandler, error) {
	if reconciler == nil {
		return nil, errors.New("rederive handler: nil reconciler")
	}
	if source == nil {
		return nil, errors.New("rederive handler: nil historical source")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RederiveHandler{reconciler: reconciler, source: source, auditor: auditor, logger: logger}, nil
}

type rederiveRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type rederiveResponse struct {
	Applied  int `json:"applied"`
	Rejected int `json:"rejected"`
}

// ServeHTTP handles POST /api/v1/intervals/rederive.
func (h *RederiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req rederiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Start.IsZero() || req.End.IsZero() {
		http.Error(w, "start and end are required", http.StatusBadRequest)
		return
	}
	if !req.End.After(req.Start) {
		http.Error(w, "end must be after start", http.StatusBadRequest)
		return
	}

	report, err := h.reconciler.RederiveRange(r.Context(), h.source, req.Start, req.End)
	if err != nil {
		h.logger.Printf("api: rederive failed: %v", err)
		http.Error(w, "rederive error", http.StatusInternalServerError)
		return
	}

	h.logAudit(r, req, report)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rederiveResponse{Applied: report.Applied, Rejected: report.Rejected})
}

func (h *RederiveHandler) logAudit(r *http.Request, req rederiveRequest, report application.RederiveReport) {
	if h.auditor == nil {
		return
	}
	metadata, _ := json.Marshal(map[string]any{
		"start":    req.Start.UTC().Format(time.RFC3339),
		"end":      req.End.UTC().Format(time.RFC3339),
		"applied":  report.Applied,
		"rejected": report.Rejected,
	})
	entry := audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       audit.ActionRederiveRange,
		ResourceType: "interval_range",
		ResourceID:   req.Start.UTC().Format(time.RFC3339) + "/" + req.End.UTC().Format(time.RFC3339),
		Metadata:     metadata,
		IP:           r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	}
	if err := h.auditor.Log(r.Context(), entry); err != nil {
		h.logger.Printf("api: audit write failed: %v", err)
	}
}

// PurgeHandler deletes the record for one canonical slot. Destructive;
// admin-only and always audited.
type PurgeHandler struct {
	repo    domain.Repository
	auditor audit.Logger
	logger  *log.Logger
}

// NewPurgeHandler constructs a PurgeHandler.
func NewPurgeHandler(repo domain.Repository, auditor audit.Logger, logger *log.Logger) (*PurgeHandler, error) {
	if repo == nil {
		return nil, errors.New("purge handler: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &PurgeHandler{repo: repo, auditor: auditor, logger: logger}, nil
}

// ServeHTTP handles DELETE /api/v1/intervals/{slot}, where slot is either
// the storage key form (20060102T1504) or RFC3339.
func (h *PurgeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	slot, err := parseSlotPath(r.URL.Path)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(r.Context(), slot); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			http.Error(w, "interval not found", http.StatusNotFound)
			return
		}
		h.logger.Printf("api: purge failed: %v", err)
		http.Error(w, "purge error", http.StatusInternalServerError)
		return
	}

	h.logAudit(r, slot)
	w.WriteHeader(http.StatusNoContent)
}

func (h *PurgeHandler) logAudit(r *http.Request, slot time.Time) {
	if h.auditor == nil {
		return
	}
	entry := audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       audit.ActionPurgeInterval,
		ResourceType: "interval_record",
		ResourceID:   slot.Format(time.RFC3339),
		IP:           r.RemoteAddr,
		UserAgent:    r.UserAgent(),
	}
	if err := h.auditor.Log(r.Context(), entry); err != nil {
		h.logger.Printf("api: audit write failed: %v", err)
	}
}

func parseSlotPath(path string) (time.Time, error) {
	raw := strings.TrimPrefix(path, "/api/v1/intervals/")
	if raw == "" || strings.Contains(raw, "/") {
		return time.Time{}, errors.New("slot is required")
	}
	if slot, err := time.Parse("20060102T1504", raw); err == nil {
		return slot.UTC(), nil
	}
	if slot, err := time.Parse(time.RFC3339, raw); err == nil {
		return slot.UTC(), nil
	}
	return time.Time{}, errors.New("slot must be 20060102T1504 or RFC3339")
}
