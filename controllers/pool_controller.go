package controllers

import (
	"encoding/json"
	"net/http"

	"mingle_server/services"
)

// PoolController handles HTTP requests for the waiting pool
type PoolController struct {
	PoolService *services.PoolService
}

// NewPoolController creates a new PoolController instance
func NewPoolController(poolService *services.PoolService) *PoolController {
	return &PoolController{PoolService: poolService}
}

// HandleJoin places a participant into a mode's waiting pool
func (pc *PoolController) HandleJoin(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ParticipantID string `json:"participantId"`
		Mode          string `json:"mode"`
		Criteria      string `json:"criteria"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if request.ParticipantID == "" || request.Mode == "" || request.Criteria == "" {
		http.Error(w, "participantId, mode, and criteria are required", http.StatusBadRequest)
		return
	}

	result, err := pc.PoolService.Join(r.Context(), request.Mode, request.ParticipantID, request.Criteria)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, result)
}

// HandleStatus reports group-mode bucket progress for a waiting participant
func (pc *PoolController) HandleStatus(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	participantID := r.URL.Query().Get("participantId")
	if mode == "" || participantID == "" {
		http.Error(w, "mode and participantId are required", http.StatusBadRequest)
		return
	}

	status, err := pc.PoolService.Status(r.Context(), mode, participantID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, status)
}

// HandlePoll reports whether a 1-on-1 participant has been matched yet
func (pc *PoolController) HandlePoll(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	participantID := r.URL.Query().Get("participantId")
	if mode == "" || participantID == "" {
		http.Error(w, "mode and participantId are required", http.StatusBadRequest)
		return
	}

	result, err := pc.PoolService.Poll(r.Context(), mode, participantID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, result)
}

// HandleLeave removes a still-waiting participant from the pool
func (pc *PoolController) HandleLeave(w http.ResponseWriter, r *http.Request) {
	var request struct {
		ParticipantID string `json:"participantId"`
		Mode          string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if request.ParticipantID == "" || request.Mode == "" {
		http.Error(w, "participantId and mode are required", http.StatusBadRequest)
		return
	}

	if err := pc.PoolService.Leave(r.Context(), request.Mode, request.ParticipantID); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]bool{"ok": true})
}
