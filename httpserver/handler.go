package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ruteri/confidential-trials/banner"
	"github.com/ruteri/confidential-trials/interfaces"
	"github.com/ruteri/confidential-trials/trials"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

var errNotInitialized = errors.New("FHE client is not initialized")

// RequestError pairs an error with the HTTP status it is reported with.
type RequestError struct {
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error  string       `json:"error"`
	Banner banner.State `json:"banner"`
}

type verifyResponse struct {
	ID  interfaces.TrialID `json:"id"`
	Age uint32             `json:"age"`
}

type createResponse struct {
	ID    interfaces.TrialID `json:"id"`
	Trial *interfaces.Trial  `json:"trial,omitempty"`
}

// Handler serves the orchestrator API.
type Handler struct {
	orchestrator *trials.Orchestrator
	log          *slog.Logger
}

func NewHandler(orchestrator *trials.Orchestrator, log *slog.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		log:          log,
	}
}

func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.orchestrator.Session())
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.orchestrator.Status())
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.orchestrator.Stats())
}

// HandleListTrials returns the loaded trials, filtered by the search query parameter when present.
func (h *Handler) HandleListTrials(w http.ResponseWriter, r *http.Request) {
	if search := r.URL.Query().Get("search"); search != "" {
		h.writeJSON(w, http.StatusOK, h.orchestrator.Filter(search))
		return
	}
	h.writeJSON(w, http.StatusOK, h.orchestrator.Trials())
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.Refresh(detached(r)); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.orchestrator.Trials())
}

// HandleGetTrial selects the trial and returns it.
func (h *Handler) HandleGetTrial(w http.ResponseWriter, r *http.Request) {
	id := interfaces.TrialID(chi.URLParam(r, "id"))
	trial, ok := h.orchestrator.Select(id)
	if !ok {
		h.writeError(w, &RequestError{StatusCode: http.StatusNotFound, Err: errors.New("trial not found: " + id.String())})
		return
	}
	h.writeJSON(w, http.StatusOK, trial)
}

func (h *Handler) HandleClearSelection(w http.ResponseWriter, r *http.Request) {
	h.orchestrator.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleGetForm(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.orchestrator.Form())
}

func (h *Handler) HandleUpdateForm(w http.ResponseWriter, r *http.Request) {
	var fields trials.FormFields
	if err := decodeBody(w, r, &fields); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.orchestrator.UpdateForm(fields))
}

func (h *Handler) HandleOpenForm(w http.ResponseWriter, r *http.Request) {
	h.orchestrator.OpenForm()
	h.writeJSON(w, http.StatusOK, h.orchestrator.Form())
}

func (h *Handler) HandleCloseForm(w http.ResponseWriter, r *http.Request) {
	h.orchestrator.CloseForm()
	h.writeJSON(w, http.StatusOK, h.orchestrator.Form())
}

func (h *Handler) HandleSubmitForm(w http.ResponseWriter, r *http.Request) {
	if !h.orchestrator.Initialized() {
		h.writeError(w, &RequestError{StatusCode: http.StatusServiceUnavailable, Err: errNotInitialized})
		return
	}

	id, err := h.orchestrator.SubmitForm(detached(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCreated(w, id)
}

// HandleCreateTrial creates a trial from a JSON-encoded interfaces.TrialInput.
func (h *Handler) HandleCreateTrial(w http.ResponseWriter, r *http.Request) {
	if !h.orchestrator.Initialized() {
		h.writeError(w, &RequestError{StatusCode: http.StatusServiceUnavailable, Err: errNotInitialized})
		return
	}

	var input interfaces.TrialInput
	if err := decodeBody(w, r, &input); err != nil {
		h.writeError(w, err)
		return
	}

	id, err := h.orchestrator.CreateTrial(detached(r), input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeCreated(w, id)
}

func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	if !h.orchestrator.Initialized() {
		h.writeError(w, &RequestError{StatusCode: http.StatusServiceUnavailable, Err: errNotInitialized})
		return
	}

	id := interfaces.TrialID(chi.URLParam(r, "id"))
	age, err := h.orchestrator.Verify(detached(r), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, verifyResponse{ID: id, Age: age})
}

func (h *Handler) HandleProbe(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.Probe(detached(r)); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.orchestrator.Banner())
}

func (h *Handler) writeCreated(w http.ResponseWriter, id interfaces.TrialID) {
	resp := createResponse{ID: id}
	for _, t := range h.orchestrator.Trials() {
		if t.ID == id {
			resp.Trial = &t
			break
		}
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "status", status, "err", err)
	} else {
		h.log.Debug("Request rejected", "status", status, "err", err)
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error(), Banner: h.orchestrator.Banner()})
}

func statusFor(err error) int {
	var reqErr *RequestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.StatusCode
	case errors.Is(err, interfaces.ErrWorkflowBusy):
		return http.StatusConflict
	case errors.Is(err, interfaces.ErrNotConnected):
		return http.StatusPreconditionFailed
	case errors.Is(err, interfaces.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, interfaces.ErrUserRejected):
		return http.StatusForbidden
	case errors.Is(err, interfaces.ErrInitialization):
		return http.StatusServiceUnavailable
	case errors.Is(err, interfaces.ErrFetchFailure), errors.Is(err, interfaces.ErrSubmissionFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &RequestError{StatusCode: http.StatusBadRequest, Err: errors.New("invalid request body: " + err.Error())}
	}
	return nil
}

// detached keeps request values but drops cancellation, so a workflow
// finishes even if the client goes away.
func detached(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
