package bank

import (
	"encoding/json"
	"net/http"

	"github.com/skillforge/engine/internal/models"
)

type Handler struct {
	bank *Bank
}

func NewHandler(bank *Bank) *Handler {
	return &Handler{bank: bank}
}

// ListTopics returns topics in first-seen source order plus per-topic counts.
func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	counts := h.bank.CountByTopic()

	topics := []models.TopicInfo{}
	for _, name := range h.bank.Topics() {
		topics = append(topics, models.TopicInfo{Name: name, Count: counts[name]})
	}

	writeJSON(w, http.StatusOK, models.TopicListResponse{
		Topics: topics,
		Total:  h.bank.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
