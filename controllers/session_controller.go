package controllers

import (
	"encoding/json"
	"net/http"

	"mingle_server/services"

	"github.com/gorilla/mux"
)

// SessionController handles HTTP requests for active game sessions
type SessionController struct {
	SessionService *services.SessionService
}

// NewSessionController creates a new SessionController instance
func NewSessionController(sessionService *services.SessionService) *SessionController {
	return &SessionController{SessionService: sessionService}
}

// HandleGetSession returns the session snapshot for a polling participant
func (sc *SessionController) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	callerID := r.URL.Query().Get("participantId")
	if callerID == "" {
		http.Error(w, "participantId is required", http.StatusBadRequest)
		return
	}

	view, err := sc.SessionService.View(r.Context(), sessionID, callerID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, view)
}

// HandleSubmitPrompt records the turn holder's prompt and opens the round
func (sc *SessionController) HandleSubmitPrompt(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	var request struct {
		AuthorID string `json:"authorId"`
		Text     string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if request.AuthorID == "" || request.Text == "" {
		http.Error(w, "authorId and text are required", http.StatusBadRequest)
		return
	}

	if err := sc.SessionService.SubmitPrompt(r.Context(), sessionID, request.AuthorID, request.Text); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleSubmitAnswer records one participant's answer for the open round
func (sc *SessionController) HandleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	var request struct {
		ResponderID string `json:"responderId"`
		Value       string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if request.ResponderID == "" || request.Value == "" {
		http.Error(w, "responderId and value are required", http.StatusBadRequest)
		return
	}

	if err := sc.SessionService.SubmitAnswer(r.Context(), sessionID, request.ResponderID, request.Value); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleRoundResult returns the round payload once everyone has answered
func (sc *SessionController) HandleRoundResult(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	callerID := r.URL.Query().Get("participantId")
	if callerID == "" {
		http.Error(w, "participantId is required", http.StatusBadRequest)
		return
	}

	result, err := sc.SessionService.RoundResult(r.Context(), sessionID, callerID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, result)
}

// HandleRateFeedback attaches the turn holder's like/dislike to an answer
func (sc *SessionController) HandleRateFeedback(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	var request struct {
		ParticipantID string `json:"participantId"`
		ResponderID   string `json:"responderId"`
		Value         string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if request.ParticipantID == "" || request.ResponderID == "" || request.Value == "" {
		http.Error(w, "participantId, responderId, and value are required", http.StatusBadRequest)
		return
	}

	if err := sc.SessionService.RateFeedback(r.Context(), sessionID, request.ParticipantID, request.ResponderID, request.Value); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleAdvanceRound rotates the turn and opens the next round
func (sc *SessionController) HandleAdvanceRound(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	var request struct {
		ParticipantID string `json:"participantId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if request.ParticipantID == "" {
		http.Error(w, "participantId is required", http.StatusBadRequest)
		return
	}

	view, err := sc.SessionService.AdvanceRound(r.Context(), sessionID, request.ParticipantID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, view)
}

// HandleLeaveSession removes a participant from an active session
func (sc *SessionController) HandleLeaveSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["sessionId"]
	var request struct {
		ParticipantID string `json:"participantId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if request.ParticipantID == "" {
		http.Error(w, "participantId is required", http.StatusBadRequest)
		return
	}

	if err := sc.SessionService.Leave(r.Context(), sessionID, request.ParticipantID); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSONResponse(w, http.StatusOK, map[string]bool{"ok": true})
}
