package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eunoia-health/eunoia/internal/domain"
)

// ConversationPGStore persists conversations in Postgres. Messages live as a
// JSONB column per conversation; append runs inside a transaction with a row
// lock, so concurrent turns for the same conversation serialize in the
// database instead of in process memory.
type ConversationPGStore struct {
	pool *pgxpool.Pool
}

func NewConversationPGStore(pool *pgxpool.Pool) *ConversationPGStore {
	return &ConversationPGStore{pool: pool}
}

func (s *ConversationPGStore) ListConversations(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT conversation_id, title, created_at, updated_at, jsonb_array_length(messages)
		 FROM conversations
		 WHERE user_id = $1
		 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []domain.ConversationSummary
	for rows.Next() {
		var summary domain.ConversationSummary
		if err := rows.Scan(&summary.ConversationID, &summary.Title, &summary.CreatedAt, &summary.UpdatedAt, &summary.MessageCount); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func (s *ConversationPGStore) GetConversation(ctx context.Context, userID, conversationID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	var messagesJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT conversation_id, title, created_at, updated_at, messages
		 FROM conversations
		 WHERE user_id = $1 AND conversation_id = $2`,
		userID, conversationID,
	).Scan(&conv.ConversationID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt, &messagesJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(messagesJSON, &conv.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return &conv, nil
}

func (s *ConversationPGStore) CreateConversation(ctx context.Context, userID string) (string, error) {
	now := time.Now().UTC()
	conversationID := newConversationID(now)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversations (user_id, conversation_id, title, created_at, updated_at, messages)
		 VALUES ($1, $2, $3, $4, $4, '[]'::jsonb)`,
		userID, conversationID, domain.DefaultTitle, now,
	)
	if err != nil {
		return "", err
	}
	return conversationID, nil
}

func (s *ConversationPGStore) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM conversations WHERE user_id = $1 AND conversation_id = $2`,
		userID, conversationID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}

func (s *ConversationPGStore) ClearHistory(ctx context.Context, userID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE user_id = $1`, userID)
	return err
}

func (s *ConversationPGStore) History(ctx context.Context, userID, conversationID string) ([]domain.Message, error) {
	var messagesJSON []byte
	var err error
	if conversationID != "" {
		err = s.pool.QueryRow(ctx,
			`SELECT messages FROM conversations WHERE user_id = $1 AND conversation_id = $2`,
			userID, conversationID,
		).Scan(&messagesJSON)
	} else {
		err = s.pool.QueryRow(ctx,
			`SELECT messages FROM conversations WHERE user_id = $1 ORDER BY updated_at DESC LIMIT 1`,
			userID,
		).Scan(&messagesJSON)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var messages []domain.Message
	if err := json.Unmarshal(messagesJSON, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return messages, nil
}

// PruneConversations drops conversations not updated since the cutoff.
func (s *ConversationPGStore) PruneConversations(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM conversations WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *ConversationPGStore) AppendMessage(ctx context.Context, userID, conversationID, role, text string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	var messagesJSON []byte
	var title string
	err = tx.QueryRow(ctx,
		`SELECT messages, title FROM conversations
		 WHERE user_id = $1 AND conversation_id = $2
		 FOR UPDATE`,
		userID, conversationID,
	).Scan(&messagesJSON, &title)

	var messages []domain.Message
	exists := true
	if errors.Is(err, pgx.ErrNoRows) {
		exists = false
		title = domain.DefaultTitle
	} else if err != nil {
		return err
	} else if err := json.Unmarshal(messagesJSON, &messages); err != nil {
		return fmt.Errorf("failed to decode messages: %w", err)
	}

	messages = append(messages, domain.Message{
		Role:      role,
		Text:      text,
		Timestamp: now.Format(time.RFC3339),
	})
	messages = domain.CapMessages(messages)
	if title == domain.DefaultTitle || title == "" {
		title = domain.TitleFromMessages(messages)
	}

	encoded, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}

	if exists {
		_, err = tx.Exec(ctx,
			`UPDATE conversations SET messages = $1, title = $2, updated_at = $3
			 WHERE user_id = $4 AND conversation_id = $5`,
			encoded, title, now, userID, conversationID,
		)
	} else {
		_, err = tx.Exec(ctx,
			`INSERT INTO conversations (user_id, conversation_id, title, created_at, updated_at, messages)
			 VALUES ($1, $2, $3, $4, $4, $5)`,
			userID, conversationID, title, now, encoded,
		)
	}
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}
