package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eunoia-health/eunoia/internal/domain"
	"github.com/eunoia-health/eunoia/internal/service"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Chat(ctx context.Context, req service.ChatRequest) (*service.ChatResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ChatResult), args.Error(1)
}

type MockConversationStore struct {
	mock.Mock
}

func (m *MockConversationStore) ListConversations(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ConversationSummary), args.Error(1)
}

func (m *MockConversationStore) GetConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	args := m.Called(ctx, userID, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationStore) CreateConversation(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockConversationStore) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	args := m.Called(ctx, userID, conversationID)
	return args.Error(0)
}

func (m *MockConversationStore) ClearHistory(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockConversationStore) History(ctx context.Context, userID, conversationID string) ([]domain.Message, error) {
	args := m.Called(ctx, userID, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}

func (m *MockConversationStore) AppendMessage(ctx context.Context, userID, conversationID, role, text string) error {
	args := m.Called(ctx, userID, conversationID, role, text)
	return args.Error(0)
}

func TestChatHandler_Chat_Success(t *testing.T) {
	mockSvc := new(MockChatService)
	mockStore := new(MockConversationStore)
	handler := NewChatHandler(mockSvc, mockStore)

	mockSvc.On("Chat", mock.Anything, mock.MatchedBy(func(req service.ChatRequest) bool {
		return req.UserID == "user-1" && req.Message == "Why is my period late?"
	})).Return(&service.ChatResult{
		Response:       "A late period can have many causes.",
		Emotion:        "anxious",
		Language:       "en",
		ConversationID: "20250101120000000001",
	}, nil)

	body := `{"message":"Why is my period late?","user_id":"user-1"}`
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp ChatMessageResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "A late period can have many causes.", resp.Response)
	assert.Equal(t, "anxious", resp.Emotion)
	assert.Equal(t, "en", resp.Language)
	assert.Equal(t, "20250101120000000001", resp.ConversationID)
	mockSvc.AssertExpectations(t)
}

func TestChatHandler_Chat_EmptyMessage(t *testing.T) {
	mockSvc := new(MockChatService)
	handler := NewChatHandler(mockSvc, new(MockConversationStore))

	mockSvc.On("Chat", mock.Anything, mock.Anything).Return(nil, domain.ErrEmptyMessage)

	body := `{"message":"","user_id":"user-1"}`
	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no input given")
}

func TestChatHandler_Chat_InvalidJSON(t *testing.T) {
	handler := NewChatHandler(new(MockChatService), new(MockConversationStore))

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte(`{invalid`)))
	w := httptest.NewRecorder()

	handler.Chat(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestChatHandler_ClearHistory_Success(t *testing.T) {
	mockStore := new(MockConversationStore)
	handler := NewChatHandler(new(MockChatService), mockStore)

	mockStore.On("ClearHistory", mock.Anything, "user-1").Return(nil)

	body := `{"user_id":"user-1"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/clear", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.ClearHistory(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	mockStore.AssertExpectations(t)
}

func TestChatHandler_ClearHistory_MissingUserID(t *testing.T) {
	handler := NewChatHandler(new(MockChatService), new(MockConversationStore))

	req := httptest.NewRequest(http.MethodPost, "/chat/clear", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()

	handler.ClearHistory(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "user_id is required")
}

func TestChatHandler_ListConversations_Success(t *testing.T) {
	mockStore := new(MockConversationStore)
	handler := NewChatHandler(new(MockChatService), mockStore)

	now := time.Now().UTC()
	mockStore.On("ListConversations", mock.Anything, "user-1").Return([]domain.ConversationSummary{
		{ConversationID: "c-1", Title: "Why is my period late?", CreatedAt: now, UpdatedAt: now, MessageCount: 4},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/chat/conversations?user_id=user-1", nil)
	w := httptest.NewRecorder()

	handler.ListConversations(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp ConversationListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "user-1", resp.UserID)
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, "c-1", resp.Conversations[0].ConversationID)
	mockStore.AssertExpectations(t)
}

func TestChatHandler_ListConversations_Empty(t *testing.T) {
	mockStore := new(MockConversationStore)
	handler := NewChatHandler(new(MockChatService), mockStore)

	mockStore.On("ListConversations", mock.Anything, "user-1").Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/chat/conversations?user_id=user-1", nil)
	w := httptest.NewRecorder()

	handler.ListConversations(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"conversations":[]`)
}

func TestChatHandler_ListConversations_MissingUserID(t *testing.T) {
	handler := NewChatHandler(new(MockChatService), new(MockConversationStore))

	req := httptest.NewRequest(http.MethodGet, "/chat/conversations", nil)
	w := httptest.NewRecorder()

	handler.ListConversations(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatHandler_CreateConversation_Success(t *testing.T) {
	mockStore := new(MockConversationStore)
	handler := NewChatHandler(new(MockChatService), mockStore)

	mockStore.On("CreateConversation", mock.Anything, "user-1").Return("20250101120000000001", nil)

	body := `{"user_id":"user-1"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/conversations", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.CreateConversation(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp CreateConversationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "20250101120000000001", resp.ConversationID)
	mockStore.AssertExpectations(t)
}

func TestChatHandler_GetConversation_Success(t *testing.T) {
	mockStore := new(MockConversationStore)
	handler := NewChatHandler(new(MockChatService), mockStore)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	mockStore.On("GetConversation", mock.Anything, "user-1", "c-1").Return(&domain.Conversation{
		ConversationID: "c-1",
		Title:          "Why is my period late?",
		CreatedAt:      now,
		UpdatedAt:      now,
		Messages: []domain.Message{
			{Role: domain.RoleUser, Text: "Why is my period late?", Timestamp: now.Format(time.RFC3339)},
		},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/chat/conversations/c-1?user_id=user-1", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("conversationID", "c-1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	handler.GetConversation(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp ConversationDetailResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "c-1", resp.ConversationID)
	assert.Equal(t, "Why is my period late?", resp.Title)
	require.Len(t, resp.Messages, 1)
	mockStore.AssertExpectations(t)
}

func TestChatHandler_GetConversation_NotFound(t *testing.T) {
	mockStore := new(MockConversationStore)
	handler := NewChatHandler(new(MockChatService), mockStore)

	mockStore.On("GetConversation", mock.Anything, "user-1", "missing").Return(nil, domain.ErrConversationNotFound)

	req := httptest.NewRequest(http.MethodGet, "/chat/conversations/missing?user_id=user-1", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("conversationID", "missing")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	handler.GetConversation(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "conversation not found")
}

func TestChatHandler_DeleteConversation_Success(t *testing.T) {
	mockStore := new(MockConversationStore)
	handler := NewChatHandler(new(MockChatService), mockStore)

	mockStore.On("DeleteConversation", mock.Anything, "user-1", "c-1").Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/chat/conversations/c-1?user_id=user-1", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("conversationID", "c-1")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	handler.DeleteConversation(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockStore.AssertExpectations(t)
}

func TestChatHandler_DeleteConversation_NotFound(t *testing.T) {
	mockStore := new(MockConversationStore)
	handler := NewChatHandler(new(MockChatService), mockStore)

	mockStore.On("DeleteConversation", mock.Anything, "user-1", "missing").Return(domain.ErrConversationNotFound)

	req := httptest.NewRequest(http.MethodDelete, "/chat/conversations/missing?user_id=user-1", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("conversationID", "missing")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	w := httptest.NewRecorder()

	handler.DeleteConversation(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatHandler_History_Success(t *testing.T) {
	mockStore := new(MockConversationStore)
	handler := NewChatHandler(new(MockChatService), mockStore)

	mockStore.On("History", mock.Anything, "user-1", "c-1").Return([]domain.Message{
		{Role: domain.RoleUser, Text: "hello", Timestamp: "2025-01-01T12:00:00Z"},
		{Role: domain.RoleAssistant, Text: "Hi! How can I help?", Timestamp: "2025-01-01T12:00:01Z"},
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/chat/history?user_id=user-1&conversation_id=c-1", nil)
	w := httptest.NewRecorder()

	handler.History(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp ChatHistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, domain.RoleAssistant, resp.Messages[1].Role)
	mockStore.AssertExpectations(t)
}

func TestChatHandler_History_MissingUserID(t *testing.T) {
	handler := NewChatHandler(new(MockChatService), new(MockConversationStore))

	req := httptest.NewRequest(http.MethodGet, "/chat/history", nil)
	w := httptest.NewRecorder()

	handler.History(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
