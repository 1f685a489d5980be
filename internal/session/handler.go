package session

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/skillforge/engine/internal/models"
)

type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req models.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.Topic == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "topic is required"})
		return
	}

	resp, err := h.engine.Start(req.Topic, req.Mode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	resp, err := h.engine.Current()
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SelectChoice(w http.ResponseWriter, r *http.Request) {
	var req models.SelectChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	resp, err := h.engine.SelectChoice(req.Choice)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	feedback, err := h.engine.SubmitAnswer()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feedback)
}

func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	resp, err := h.engine.Advance()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Abort(w http.ResponseWriter, r *http.Request) {
	resp, err := h.engine.Abort()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Finish(w http.ResponseWriter, r *http.Request) {
	summary, err := h.engine.Finish()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.engine.Summary()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// writeError maps the error taxonomy onto status codes: state-machine
// violations are conflicts, anything else from the engine is a bad request.
func writeError(w http.ResponseWriter, err error) {
	var stateErr *models.InvalidStateError
	if errors.As(err, &stateErr) {
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: stateErr.Error()})
		return
	}
	writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
