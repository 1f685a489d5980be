package progress

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/skillforge/engine/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ProgressResponse{
		Progress:           h.service.Snapshot(),
		DailyGoalCompleted: h.service.DailyGoalCompleted(),
	})
}

func (h *Handler) RefillLives(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RefillLives(); err != nil {
		log.Printf("[progress] RefillLives error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to persist lives"})
		return
	}
	writeJSON(w, http.StatusOK, models.RefillLivesResponse{Lives: h.service.Lives()})
}

func (h *Handler) SetDailyGoal(w http.ResponseWriter, r *http.Request) {
	var req models.SetDailyGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	if err := h.service.SetDailyGoal(req.Target); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, models.ProgressResponse{
		Progress:           h.service.Snapshot(),
		DailyGoalCompleted: h.service.DailyGoalCompleted(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
