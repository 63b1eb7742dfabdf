package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/personachat/backend/internal/model/chat"
	"github.com/personachat/backend/internal/service/ai"
	chatService "github.com/personachat/backend/internal/service/chat"
	"github.com/personachat/backend/internal/store"
	"github.com/personachat/backend/pkg/utils"
)

// Handler exposes the chat endpoints the study client consumes.
type Handler struct {
	chatSvc *chatService.Service
}

// New creates the chat handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/history", h.handleHistory)
	r.Post("/chat/create", h.handleCreate)
	r.Post("/chat", h.handleMessage)
}

type historyResponse struct {
	Status              string      `json:"status"`
	PersonalityAssigned bool        `json:"personalityAssigned"`
	Messages            []chat.Turn `json:"messages"`
}

// handleHistory serves GET /chat/history?privateID&limit&beforeTimestamp.
// A 400 for an unknown privateID is the client's signal to run the
// questionnaire and create the session.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	privateID := r.URL.Query().Get("privateID")
	if privateID == "" {
		utils.RespondError(w, http.StatusBadRequest, "privateID is required")
		return
	}

	limit := store.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			utils.RespondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	var before *time.Time
	if raw := r.URL.Query().Get("beforeTimestamp"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "beforeTimestamp must be RFC 3339")
			return
		}
		before = &parsed
	}

	session, turns, err := h.chatSvc.History(r.Context(), privateID, limit, before)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			utils.RespondError(w, http.StatusBadRequest, "privateID does not exist")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	utils.RespondJSON(w, http.StatusOK, historyResponse{
		Status:              "success",
		PersonalityAssigned: session.Personality != "",
		Messages:            turns,
	})
}

type createRequest struct {
	PrivateID string            `json:"privateID"`
	Answers   map[string]string `json:"answers"`
}

type createResponse struct {
	Status      string       `json:"status"`
	ChatSession sessionReply `json:"chatSession"`
}

type sessionReply struct {
	PrivateID string   `json:"privateID"`
	IsControl bool     `json:"isControl"`
	Traits    []string `json:"traits"`
}

// handleCreate serves POST /chat/create. Answers arrive keyed by question
// index "1".."5"; missing or malformed entries take the composer's low-score
// branch. The resolved personality text stays server-side.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload createRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.PrivateID == "" {
		utils.RespondError(w, http.StatusBadRequest, "privateID is required")
		return
	}

	answers := make(map[int]string, len(payload.Answers))
	for key, value := range payload.Answers {
		index, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		answers[index] = value
	}

	session, err := h.chatSvc.CreateSession(r.Context(), payload.PrivateID, answers)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateSession):
			utils.RespondError(w, http.StatusConflict, "a session already exists for this privateID")
		case errors.Is(err, chatService.ErrPrivateIDRequired):
			utils.RespondError(w, http.StatusBadRequest, err.Error())
		default:
			utils.RespondError(w, http.StatusInternalServerError, "failed to create session")
		}
		return
	}

	utils.RespondJSON(w, http.StatusCreated, createResponse{
		Status: "success",
		ChatSession: sessionReply{
			PrivateID: session.PrivateID,
			IsControl: session.IsControl,
			Traits:    session.Traits,
		},
	})
}

type messageRequest struct {
	PrivateID   string `json:"privateID"`
	UserMessage string `json:"userMessage"`
	ReplyTo     string `json:"replyTo,omitempty"`
}

type messageResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// handleMessage serves POST /chat. On an upstream failure the user's turn is
// already persisted; the client gets an error and may retry the send.
func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var payload messageRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.PrivateID == "" || payload.UserMessage == "" {
		utils.RespondError(w, http.StatusBadRequest, "privateID and userMessage are required")
		return
	}

	reply, err := h.chatSvc.SendMessage(r.Context(), payload.PrivateID, payload.UserMessage, payload.ReplyTo)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrSessionNotFound):
			utils.RespondError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, ai.ErrUpstream), errors.Is(err, chatService.ErrNoGateway):
			utils.RespondError(w, http.StatusBadGateway, "assistant is unavailable, your message was saved")
		default:
			utils.RespondError(w, http.StatusInternalServerError, "failed to process message")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, messageResponse{
		Status:  "success",
		Message: reply.Content,
	})
}
