package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	domainchat "tradepost/internal/domain/chat"
	domainlistings "tradepost/internal/domain/listings"
	domainuser "tradepost/internal/domain/user"
)

// ConversationRepository persists conversations and messages on the
// enclosing unit of work's transaction.
type ConversationRepository struct {
	q querier
}

func (r *ConversationRepository) ByID(ctx context.Context, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, listing_id, buyer_id, seller_id, last_activity_at, created_at
		FROM conversations
		WHERE id = $1
	`, string(id))
	return scanConversation(row)
}

func (r *ConversationRepository) ByTriple(ctx context.Context, listingID string, buyerID, sellerID domainuser.ID) (*domainchat.Conversation, error) {
	row := r.q.QueryRow(ctx, `
		SELECT id, listing_id, buyer_id, seller_id, last_activity_at, created_at
		FROM conversations
		WHERE listing_id = $1 AND buyer_id = $2 AND seller_id = $3
	`, listingID, string(buyerID), string(sellerID))
	return scanConversation(row)
}

// Insert reports a lost first-contact race via ON CONFLICT DO NOTHING
// rather than a unique-violation error: a statement error would abort
// the enclosing transaction and the caller could no longer re-read the
// winner on it.
func (r *ConversationRepository) Insert(ctx context.Context, c *domainchat.Conversation) error {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO conversations (id, listing_id, buyer_id, seller_id, last_activity_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT conversations_triple_unique DO NOTHING
	`, string(c.ID), string(c.ListingID), string(c.BuyerID), string(c.SellerID), c.LastActivityAt, c.CreatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainchat.ErrDuplicateConversation
	}
	return nil
}

func (r *ConversationRepository) ListForUser(ctx context.Context, userID domainuser.ID, limit, offset int) ([]domainchat.Summary, int64, error) {
	uid := string(userID)

	var total int64
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM conversations WHERE buyer_id = $1 OR seller_id = $1
	`, uid).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.q.Query(ctx, `
		SELECT c.id, c.listing_id, c.buyer_id, c.seller_id, c.last_activity_at, c.created_at,
		       l.title, l.price_cents, l.thumbnail_url,
		       u.id, u.name, u.avatar_url,
		       COALESCE((
		           SELECT m.body FROM messages m
		           WHERE m.conversation_id = c.id
		           ORDER BY m.sent_at DESC, m.id DESC
		           LIMIT 1
		       ), ''),
		       (
		           SELECT COUNT(*) FROM messages m
		           WHERE m.conversation_id = c.id
		             AND m.sender_id <> $1
		             AND NOT m.is_read
		       )
		FROM conversations c
		JOIN listings l ON l.id = c.listing_id
		JOIN users u ON u.id = CASE WHEN c.buyer_id = $1 THEN c.seller_id ELSE c.buyer_id END
		WHERE c.buyer_id = $1 OR c.seller_id = $1
		ORDER BY c.last_activity_at DESC NULLS LAST, c.created_at DESC
		LIMIT $2 OFFSET $3
	`, uid, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var summaries []domainchat.Summary
	for rows.Next() {
		var (
			s            domainchat.Summary
			id           string
			listingID    string
			buyerID      string
			sellerID     string
			lastActivity *time.Time
			createdAt    time.Time
			partnerID    string
		)
		if err := rows.Scan(
			&id, &listingID, &buyerID, &sellerID, &lastActivity, &createdAt,
			&s.ListingTitle, &s.ListingPrice, &s.ListingThumbnail,
			&partnerID, &s.Counterpart.Name, &s.Counterpart.AvatarURL,
			&s.LastMessage, &s.Unread,
		); err != nil {
			return nil, 0, err
		}
		s.Conversation = domainchat.Conversation{
			ID:             domainchat.ConversationID(id),
			ListingID:      domainlistings.ListingID(listingID),
			BuyerID:        domainuser.ID(buyerID),
			SellerID:       domainuser.ID(sellerID),
			LastActivityAt: lastActivity,
			CreatedAt:      createdAt,
		}
		s.Counterpart.ID = domainuser.ID(partnerID)
		summaries = append(summaries, s)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return summaries, total, nil
}

func (r *ConversationRepository) InsertMessage(ctx context.Context, m *domainchat.Message) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, body, is_read, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, string(m.ID), string(m.ConversationID), string(m.SenderID), m.Body, m.Read, m.SentAt)
	return err
}

func (r *ConversationRepository) TouchActivity(ctx context.Context, id domainchat.ConversationID, at time.Time) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE conversations SET last_activity_at = $2 WHERE id = $1
	`, string(id), at.UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainchat.ErrConversationNotFound
	}
	return nil
}

func (r *ConversationRepository) MessagesPage(ctx context.Context, id domainchat.ConversationID, limit, offset int) ([]domainchat.Message, int64, error) {
	var total int64
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages WHERE conversation_id = $1
	`, string(id)).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, conversation_id, sender_id, body, is_read, sent_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY sent_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, string(id), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var messages []domainchat.Message
	for rows.Next() {
		var (
			m      domainchat.Message
			msgID  string
			convID string
			sender string
		)
		if err := rows.Scan(&msgID, &convID, &sender, &m.Body, &m.Read, &m.SentAt); err != nil {
			return nil, 0, err
		}
		m.ID = domainchat.MessageID(msgID)
		m.ConversationID = domainchat.ConversationID(convID)
		m.SenderID = domainuser.ID(sender)
		messages = append(messages, m)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return messages, total, nil
}

func (r *ConversationRepository) MarkRead(ctx context.Context, id domainchat.ConversationID, readerID domainuser.ID) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE messages
		SET is_read = true
		WHERE conversation_id = $1 AND sender_id <> $2 AND NOT is_read
	`, string(id), string(readerID))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *ConversationRepository) UnreadTotal(ctx context.Context, userID domainuser.ID) (int64, error) {
	var total int64
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE (c.buyer_id = $1 OR c.seller_id = $1)
		  AND m.sender_id <> $1
		  AND NOT m.is_read
	`, string(userID)).Scan(&total)
	return total, err
}

func (r *ConversationRepository) Delete(ctx context.Context, id domainchat.ConversationID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainchat.ErrConversationNotFound
	}
	return nil
}

func scanConversation(row pgx.Row) (*domainchat.Conversation, error) {
	var (
		c            domainchat.Conversation
		id           string
		listingID    string
		buyerID      string
		sellerID     string
		lastActivity *time.Time
	)
	err := row.Scan(&id, &listingID, &buyerID, &sellerID, &lastActivity, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainchat.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	c.ID = domainchat.ConversationID(id)
	c.ListingID = domainlistings.ListingID(listingID)
	c.BuyerID = domainuser.ID(buyerID)
	c.SellerID = domainuser.ID(sellerID)
	c.LastActivityAt = lastActivity
	return &c, nil
}

var _ domainchat.Repository = (*ConversationRepository)(nil)
