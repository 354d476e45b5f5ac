package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"wheelshare-backend/internal/domain"
	"wheelshare-backend/internal/service"
)

type ReportHandler struct {
	workflow service.ConditionReportWorkflow
}

func NewReportHandler(workflow service.ConditionReportWorkflow) *ReportHandler {
	return &ReportHandler{workflow: workflow}
}

type createReportRequest struct {
	Type   domain.ReportType   `json:"type"`
	Fields domain.ReportFields `json:"fields"`
}

func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrForbidden)
		return
	}

	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed request body", domain.ErrInvalidArgument))
		return
	}

	report, err := h.workflow.CreateReport(r.Context(), mux.Vars(r)["id"], actor.UserID, req.Type, req.Fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrForbidden)
		return
	}
	report, err := h.workflow.Get(r.Context(), mux.Vars(r)["id"], actor.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *ReportHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrForbidden)
		return
	}
	report, err := h.workflow.Confirm(r.Context(), mux.Vars(r)["id"], actor.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type disputeRequest struct {
	Reason string `json:"reason"`
}

func (h *ReportHandler) Dispute(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrForbidden)
		return
	}

	var req disputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed request body", domain.ErrInvalidArgument))
		return
	}

	report, err := h.workflow.Dispute(r.Context(), mux.Vars(r)["id"], actor.UserID, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type resolveRequest struct {
	Outcome string `json:"outcome"`
}

func (h *ReportHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrForbidden)
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed request body", domain.ErrInvalidArgument))
		return
	}

	report, err := h.workflow.Resolve(r.Context(), mux.Vars(r)["id"], actor, req.Outcome)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *ReportHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, domain.ErrForbidden)
		return
	}
	report, err := h.workflow.CancelReport(r.Context(), mux.Vars(r)["id"], actor.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
