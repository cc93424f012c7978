package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"markethub/internal/models"
)

type MessageRepository struct {
	DB *sqlx.DB
}

func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{DB: db}
}

const conversationColumns = `id, participant_a, participant_b, listing_type, listing_id,
	subject, listing_details, created_at, updated_at`

// CreateConversation inserts the conversation row. It accepts any sqlx
// execution context so the first message can land in the same transaction.
func CreateConversation(ctx context.Context, q sqlx.QueryerContext, c *models.Conversation) error {
	query := `
		INSERT INTO conversations (participant_a, participant_b, listing_type, listing_id, subject, listing_details)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	row := q.QueryRowxContext(ctx, query,
		c.ParticipantA, c.ParticipantB, c.ListingType, c.ListingID, c.Subject, c.ListingDetails)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("CreateConversation: %w", err)
	}
	return nil
}

func (r *MessageRepository) GetConversation(ctx context.Context, id int64) (*models.Conversation, error) {
	var c models.Conversation
	query := fmt.Sprintf(`SELECT %s FROM conversations WHERE id = $1`, conversationColumns)
	if err := r.DB.GetContext(ctx, &c, query, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConversations returns every conversation the user takes part in,
// most recently active first.
func (r *MessageRepository) ListConversations(ctx context.Context, userID int64) ([]models.Conversation, error) {
	var convs []models.Conversation
	query := fmt.Sprintf(
		`SELECT %s FROM conversations WHERE participant_a = $1 OR participant_b = $1 ORDER BY updated_at DESC`,
		conversationColumns,
	)
	if err := r.DB.SelectContext(ctx, &convs, query, userID); err != nil {
		return nil, err
	}
	return convs, nil
}

// InsertMessage appends a message and bumps the parent conversation's
// updated_at in the same transaction, keeping the derived timestamp in step.
func InsertMessage(ctx context.Context, tx *sqlx.Tx, m *models.Message) error {
	row := tx.QueryRowxContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, recipient_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, m.ConversationID, m.SenderID, m.RecipientID, m.Content)
	if err := row.Scan(&m.ID, &m.CreatedAt); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE conversations SET updated_at = now() WHERE id = $1`, m.ConversationID)
	return err
}

func (r *MessageRepository) ListMessages(ctx context.Context, conversationID int64, limit, offset int) ([]models.Message, error) {
	var msgs []models.Message
	query := `
		SELECT id, conversation_id, sender_id, recipient_id, content, is_read, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`
	if err := r.DB.SelectContext(ctx, &msgs, query, conversationID, limit, offset); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkRead flags every message addressed to userID in the conversation.
func (r *MessageRepository) MarkRead(ctx context.Context, conversationID, userID int64) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE messages SET is_read = true
		WHERE conversation_id = $1 AND recipient_id = $2 AND is_read = false
	`, conversationID, userID)
	if err != nil {
		return 0, fmt.Errorf("MessageRepository.MarkRead: %w", err)
	}
	return res.RowsAffected()
}

// UnreadCount counts unread messages addressed to the user across all
// conversations.
func (r *MessageRepository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var count int
	const q = `SELECT COUNT(1) FROM messages WHERE recipient_id = $1 AND is_read = false`
	if err := r.DB.GetContext(ctx, &count, q, userID); err != nil {
		return 0, fmt.Errorf("MessageRepository.UnreadCount: %w", err)
	}
	return count, nil
}
