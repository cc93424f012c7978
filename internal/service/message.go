package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"markethub/internal/auth"
	"markethub/internal/db"
	"markethub/internal/models"
	"markethub/internal/repository"
)

type MessageService struct {
	conn     *sqlx.DB
	messages *repository.MessageRepository
	users    *repository.UserRepository
	listings *repository.ListingRepository
}

func NewMessageService(conn *sqlx.DB, messages *repository.MessageRepository, users *repository.UserRepository, listings *repository.ListingRepository) *MessageService {
	return &MessageService{conn: conn, messages: messages, users: users, listings: listings}
}

type StartConversationInput struct {
	RecipientID int64            `json:"recipient_id"`
	ListingType *models.Category `json:"listing_type"`
	ListingID   *int64           `json:"listing_id"`
	Subject     string           `json:"subject"`
	Content     string           `json:"content"`
}

// Start opens a conversation with another user, optionally anchored to a
// listing whose details are snapshotted into the conversation. The first
// message is inserted in the same transaction.
func (s *MessageService) Start(ctx context.Context, identity *models.Identity, in StartConversationInput) (*models.Conversation, error) {
	if identity == nil {
		return nil, Forbidden(auth.ReasonAnonymous)
	}
	if in.RecipientID == identity.ID {
		return nil, Validation("recipient_id", "cannot start a conversation with yourself")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, Validation("content", "message content is required")
	}
	if (in.ListingType == nil) != (in.ListingID == nil) {
		return nil, Validation("listing_id", "listing_type and listing_id must be set together")
	}

	// Recipient must exist.
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		_, err := s.users.GetIdentity(ctx, in.RecipientID)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NotFound("user")
	}
	if err != nil {
		return nil, storageErr(err, "user")
	}

	conv := &models.Conversation{
		ParticipantA: identity.ID,
		ParticipantB: in.RecipientID,
		ListingType:  in.ListingType,
		ListingID:    in.ListingID,
		Subject:      strings.TrimSpace(in.Subject),
	}

	if in.ListingType != nil {
		if !in.ListingType.Valid() {
			return nil, Validation("listing_type", "unknown category")
		}
		var l *models.Listing
		err := db.WithRetry(ctx, func(ctx context.Context) error {
			var err error
			l, err = s.listings.GetByID(ctx, *in.ListingType, *in.ListingID)
			return err
		})
		if err != nil {
			return nil, storageErr(err, "listing")
		}
		if !l.IsPublished {
			if d := auth.CanMutateListing(identity, l.OwnerUserID); !d.Allowed {
				return nil, NotFound("listing")
			}
		}
		// Denormalized snapshot: the conversation keeps the listing as it
		// looked when the thread started, even if later edited or deleted.
		snapshot, err := json.Marshal(l)
		if err != nil {
			return nil, err
		}
		conv.ListingDetails = snapshot
	}

	err = db.WithRetry(ctx, func(ctx context.Context) error {
		return db.WithTx(ctx, s.conn, func(tx *sqlx.Tx) error {
			if err := repository.CreateConversation(ctx, tx, conv); err != nil {
				return err
			}
			msg := &models.Message{
				ConversationID: conv.ID,
				SenderID:       identity.ID,
				RecipientID:    in.RecipientID,
				Content:        in.Content,
			}
			return repository.InsertMessage(ctx, tx, msg)
		})
	})
	if err != nil {
		return nil, storageErr(err, "conversation")
	}
	return conv, nil
}

// Send appends a message to a conversation the sender takes part in; the
// recipient is always the other participant. The parent conversation's
// updated_at moves in the same transaction.
func (s *MessageService) Send(ctx context.Context, identity *models.Identity, conversationID int64, content string) (*models.Message, error) {
	if identity == nil {
		return nil, Forbidden(auth.ReasonAnonymous)
	}
	if strings.TrimSpace(content) == "" {
		return nil, Validation("content", "message content is required")
	}

	conv, err := s.fetchConversation(ctx, identity, conversationID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       identity.ID,
		RecipientID:    conv.Other(identity.ID),
		Content:        content,
	}
	err = db.WithRetry(ctx, func(ctx context.Context) error {
		return db.WithTx(ctx, s.conn, func(tx *sqlx.Tx) error {
			return repository.InsertMessage(ctx, tx, msg)
		})
	})
	if err != nil {
		return nil, storageErr(err, "message")
	}
	return msg, nil
}

// Conversations lists the caller's threads, most recently active first.
func (s *MessageService) Conversations(ctx context.Context, identity *models.Identity) ([]models.Conversation, error) {
	if identity == nil {
		return nil, Forbidden(auth.ReasonAnonymous)
	}
	var convs []models.Conversation
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		convs, err = s.messages.ListConversations(ctx, identity.ID)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "conversations")
	}
	if convs == nil {
		convs = []models.Conversation{}
	}
	return convs, nil
}

// Messages pages through a conversation's messages, oldest first.
func (s *MessageService) Messages(ctx context.Context, identity *models.Identity, conversationID int64, limit, offset int) ([]models.Message, error) {
	if identity == nil {
		return nil, Forbidden(auth.ReasonAnonymous)
	}
	if _, err := s.fetchConversation(ctx, identity, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var msgs []models.Message
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		msgs, err = s.messages.ListMessages(ctx, conversationID, limit, offset)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "messages")
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

// MarkRead flags everything addressed to the caller in the conversation.
func (s *MessageService) MarkRead(ctx context.Context, identity *models.Identity, conversationID int64) error {
	if identity == nil {
		return Forbidden(auth.ReasonAnonymous)
	}
	if _, err := s.fetchConversation(ctx, identity, conversationID); err != nil {
		return err
	}
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		_, err := s.messages.MarkRead(ctx, conversationID, identity.ID)
		return err
	})
	return storageErr(err, "messages")
}

// UnreadCount counts unread messages addressed to the caller.
func (s *MessageService) UnreadCount(ctx context.Context, identity *models.Identity) (int, error) {
	if identity == nil {
		return 0, Forbidden(auth.ReasonAnonymous)
	}
	var count int
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		count, err = s.messages.UnreadCount(ctx, identity.ID)
		return err
	})
	if err != nil {
		return 0, storageErr(err, "messages")
	}
	return count, nil
}

// fetchConversation resolves a conversation the identity takes part in.
// Non-participants get NotFound: other people's threads look absent.
func (s *MessageService) fetchConversation(ctx context.Context, identity *models.Identity, id int64) (*models.Conversation, error) {
	var conv *models.Conversation
	err := db.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		conv, err = s.messages.GetConversation(ctx, id)
		return err
	})
	if err != nil {
		return nil, storageErr(err, "conversation")
	}
	if !conv.Participant(identity.ID) {
		return nil, NotFound("conversation")
	}
	return conv, nil
}
