package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eunoia-health/eunoia/internal/domain"
)

// ConversationFileStore keeps one JSON document per user on disk. Writes go
// through a temp file and rename, and a per-user mutex serializes
// read-modify-write cycles, so concurrent chat turns for the same user never
// corrupt or drop each other's messages.
type ConversationFileStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewConversationFileStore(dir string) (*ConversationFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create conversations directory: %w", err)
	}
	return &ConversationFileStore{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *ConversationFileStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

var unsafeUserIDChars = regexp.MustCompile(`[^A-Za-z0-9._@-]`)

// sanitizeUserID maps a user id to a safe file name component. Path
// separators and anything else that could traverse outside the conversations
// directory are replaced.
func sanitizeUserID(userID string) string {
	safe := unsafeUserIDChars.ReplaceAllString(userID, "_")
	safe = strings.TrimLeft(safe, ".")
	if safe == "" {
		return "_"
	}
	return safe
}

func (s *ConversationFileStore) path(userID string) string {
	return filepath.Join(s.dir, userID+".json")
}

// legacyDocument is the old single-conversation file layout, migrated on
// first read.
type legacyDocument struct {
	Messages    []domain.Message `json:"messages"`
	LastUpdated string           `json:"last_updated"`
}

func (s *ConversationFileStore) load(userID string) (*domain.UserConversations, error) {
	data, err := os.ReadFile(s.path(userID))
	if errors.Is(err, fs.ErrNotExist) {
		return emptyDocument(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read conversations file: %w", err)
	}

	var doc domain.UserConversations
	if err := json.Unmarshal(data, &doc); err == nil && doc.Conversations != nil {
		doc.UserID = userID
		return &doc, nil
	}

	var legacy legacyDocument
	if err := json.Unmarshal(data, &legacy); err == nil && len(legacy.Messages) > 0 {
		now := time.Now().UTC()
		conversationID := newConversationID(now)
		title := domain.TitleFromMessages(legacy.Messages)
		return &domain.UserConversations{
			UserID: userID,
			Conversations: map[string]*domain.Conversation{
				conversationID: {
					ConversationID: conversationID,
					CreatedAt:      now,
					UpdatedAt:      now,
					Title:          title,
					Messages:       legacy.Messages,
				},
			},
			LastUpdated: now,
		}, nil
	}

	// Unreadable files start fresh rather than blocking the user.
	return emptyDocument(userID), nil
}

func emptyDocument(userID string) *domain.UserConversations {
	return &domain.UserConversations{
		UserID:        userID,
		Conversations: make(map[string]*domain.Conversation),
		LastUpdated:   time.Now().UTC(),
	}
}

func (s *ConversationFileStore) save(userID string, doc *domain.UserConversations) error {
	doc.LastUpdated = time.Now().UTC()
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal conversations: %w", err)
	}

	path := s.path(userID)
	tmp, err := os.CreateTemp(s.dir, userID+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write conversations: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace conversations file: %w", err)
	}
	return nil
}

func newConversationID(now time.Time) string {
	return now.Format("20060102150405") + fmt.Sprintf("%06d", now.Nanosecond()/1000)
}

func (s *ConversationFileStore) ListConversations(_ context.Context, userID string) ([]domain.ConversationSummary, error) {
	userID = sanitizeUserID(userID)
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.load(userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.ConversationSummary, 0, len(doc.Conversations))
	for id, conv := range doc.Conversations {
		summaries = append(summaries, domain.ConversationSummary{
			ConversationID: id,
			Title:          conv.Title,
			CreatedAt:      conv.CreatedAt,
			UpdatedAt:      conv.UpdatedAt,
			MessageCount:   len(conv.Messages),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	return summaries, nil
}

func (s *ConversationFileStore) GetConversation(_ context.Context, userID, conversationID string) (*domain.Conversation, error) {
	userID = sanitizeUserID(userID)
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	conv, ok := doc.Conversations[conversationID]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return conv, nil
}

func (s *ConversationFileStore) CreateConversation(_ context.Context, userID string) (string, error) {
	userID = sanitizeUserID(userID)
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.load(userID)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	conversationID := newConversationID(now)
	doc.Conversations[conversationID] = &domain.Conversation{
		ConversationID: conversationID,
		CreatedAt:      now,
		UpdatedAt:      now,
		Title:          domain.DefaultTitle,
		Messages:       []domain.Message{},
	}
	if err := s.save(userID, doc); err != nil {
		return "", err
	}
	return conversationID, nil
}

func (s *ConversationFileStore) DeleteConversation(_ context.Context, userID, conversationID string) error {
	userID = sanitizeUserID(userID)
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.load(userID)
	if err != nil {
		return err
	}
	if _, ok := doc.Conversations[conversationID]; !ok {
		return domain.ErrConversationNotFound
	}
	delete(doc.Conversations, conversationID)
	return s.save(userID, doc)
}

func (s *ConversationFileStore) ClearHistory(_ context.Context, userID string) error {
	userID = sanitizeUserID(userID)
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	err := os.Remove(s.path(userID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove conversations file: %w", err)
	}
	return nil
}

// History returns a conversation's messages. An empty conversationID selects
// the most recently updated conversation; no conversations yields an empty
// list.
func (s *ConversationFileStore) History(_ context.Context, userID, conversationID string) ([]domain.Message, error) {
	userID = sanitizeUserID(userID)
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.load(userID)
	if err != nil {
		return nil, err
	}

	if conversationID != "" {
		if conv, ok := doc.Conversations[conversationID]; ok {
			return conv.Messages, nil
		}
		return nil, nil
	}

	var latest *domain.Conversation
	for _, conv := range doc.Conversations {
		if latest == nil || conv.UpdatedAt.After(latest.UpdatedAt) {
			latest = conv
		}
	}
	if latest == nil {
		return nil, nil
	}
	return latest.Messages, nil
}

// PruneConversations drops conversations not updated since the cutoff and
// returns how many were removed. User files left empty are deleted.
func (s *ConversationFileStore) PruneConversations(_ context.Context, cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read conversations directory: %w", err)
	}

	pruned := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		userID := entry.Name()[:len(entry.Name())-len(".json")]

		lock := s.userLock(userID)
		lock.Lock()
		doc, err := s.load(userID)
		if err != nil {
			lock.Unlock()
			return pruned, err
		}

		removed := 0
		for id, conv := range doc.Conversations {
			if conv.UpdatedAt.Before(cutoff) {
				delete(doc.Conversations, id)
				removed++
			}
		}
		if removed > 0 {
			if len(doc.Conversations) == 0 {
				err = os.Remove(s.path(userID))
				if err != nil && !errors.Is(err, fs.ErrNotExist) {
					lock.Unlock()
					return pruned, fmt.Errorf("failed to remove conversations file: %w", err)
				}
			} else if err := s.save(userID, doc); err != nil {
				lock.Unlock()
				return pruned, err
			}
			pruned += removed
		}
		lock.Unlock()
	}
	return pruned, nil
}

// AppendMessage adds a message, creating the conversation on first write.
// Message retention and title derivation apply on every save.
func (s *ConversationFileStore) AppendMessage(_ context.Context, userID, conversationID, role, text string) error {
	userID = sanitizeUserID(userID)
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	doc, err := s.load(userID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	conv, ok := doc.Conversations[conversationID]
	if !ok {
		conv = &domain.Conversation{
			ConversationID: conversationID,
			CreatedAt:      now,
			Title:          domain.DefaultTitle,
		}
		doc.Conversations[conversationID] = conv
	}

	conv.Messages = append(conv.Messages, domain.Message{
		Role:      role,
		Text:      text,
		Timestamp: now.Format(time.RFC3339),
	})
	conv.Messages = domain.CapMessages(conv.Messages)
	conv.UpdatedAt = now
	if conv.Title == domain.DefaultTitle || conv.Title == "" {
		conv.Title = domain.TitleFromMessages(conv.Messages)
	}

	return s.save(userID, doc)
}
