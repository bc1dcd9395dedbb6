package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eunoia-health/eunoia/internal/api"
	"github.com/eunoia-health/eunoia/internal/domain"
	"github.com/eunoia-health/eunoia/internal/service"
)

type ChatService interface {
	Chat(ctx context.Context, req service.ChatRequest) (*service.ChatResult, error)
}

type ChatHandler struct {
	svc   ChatService
	store service.ConversationStore
}

func NewChatHandler(svc ChatService, store service.ConversationStore) *ChatHandler {
	return &ChatHandler{svc: svc, store: store}
}

type ChatMessageRequest struct {
	Message        string `json:"message"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	Language       string `json:"language"`
	Name           string `json:"name"`
}

type ChatMessageResponse struct {
	Response       string `json:"response"`
	Emotion        string `json:"emotion,omitempty"`
	Language       string `json:"language"`
	ConversationID string `json:"conversation_id"`
}

// Chat handles POST /chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Chat(r.Context(), service.ChatRequest{
		UserID:         req.UserID,
		ConversationID: req.ConversationID,
		Message:        req.Message,
		Language:       req.Language,
		Name:           req.Name,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, ChatMessageResponse{
		Response:       result.Response,
		Emotion:        result.Emotion,
		Language:       result.Language,
		ConversationID: result.ConversationID,
	})
}

type ClearHistoryRequest struct {
	UserID string `json:"user_id"`
}

type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ClearHistory handles POST /chat/clear.
func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	var req ClearHistoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		api.HandleError(w, domain.ErrMissingUserID)
		return
	}

	if err := h.store.ClearHistory(r.Context(), req.UserID); err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, StatusResponse{Success: true, Message: "Chat history cleared successfully"})
}

type ConversationListResponse struct {
	UserID        string                       `json:"user_id"`
	Conversations []domain.ConversationSummary `json:"conversations"`
}

// ListConversations handles GET /chat/conversations.
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		api.HandleError(w, domain.ErrMissingUserID)
		return
	}

	summaries, err := h.store.ListConversations(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if summaries == nil {
		summaries = []domain.ConversationSummary{}
	}
	api.JSON(w, http.StatusOK, ConversationListResponse{UserID: userID, Conversations: summaries})
}

type CreateConversationRequest struct {
	UserID string `json:"user_id"`
}

type CreateConversationResponse struct {
	Success        bool   `json:"success"`
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// CreateConversation handles POST /chat/conversations.
func (h *ChatHandler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		api.HandleError(w, domain.ErrMissingUserID)
		return
	}

	conversationID, err := h.store.CreateConversation(r.Context(), req.UserID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, CreateConversationResponse{
		Success:        true,
		ConversationID: conversationID,
		Message:        "New conversation created",
	})
}

type ConversationDetailResponse struct {
	UserID         string           `json:"user_id"`
	ConversationID string           `json:"conversation_id"`
	Title          string           `json:"title"`
	CreatedAt      string           `json:"created_at"`
	UpdatedAt      string           `json:"updated_at"`
	Messages       []domain.Message `json:"messages"`
}

// GetConversation handles GET /chat/conversations/{conversationID}.
func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		api.HandleError(w, domain.ErrMissingUserID)
		return
	}
	conversationID := chi.URLParam(r, "conversationID")

	conv, err := h.store.GetConversation(r.Context(), userID, conversationID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	messages := conv.Messages
	if messages == nil {
		messages = []domain.Message{}
	}
	api.JSON(w, http.StatusOK, ConversationDetailResponse{
		UserID:         userID,
		ConversationID: conversationID,
		Title:          conv.Title,
		CreatedAt:      conv.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:      conv.UpdatedAt.Format("2006-01-02T15:04:05Z"),
		Messages:       messages,
	})
}

// DeleteConversation handles DELETE /chat/conversations/{conversationID}.
func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		api.HandleError(w, domain.ErrMissingUserID)
		return
	}
	conversationID := chi.URLParam(r, "conversationID")

	if err := h.store.DeleteConversation(r.Context(), userID, conversationID); err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, StatusResponse{Success: true, Message: "Conversation deleted successfully"})
}

type ChatHistoryResponse struct {
	UserID         string           `json:"user_id"`
	ConversationID string           `json:"conversation_id"`
	Messages       []domain.Message `json:"messages"`
}

// History handles GET /chat/history.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		api.HandleError(w, domain.ErrMissingUserID)
		return
	}
	conversationID := r.URL.Query().Get("conversation_id")

	messages, err := h.store.History(r.Context(), userID, conversationID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	api.JSON(w, http.StatusOK, ChatHistoryResponse{
		UserID:         userID,
		ConversationID: conversationID,
		Messages:       messages,
	})
}
