package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainchat "tradepost/internal/domain/chat"
	domainuser "tradepost/internal/domain/user"
)

// ChatRepository mirrors the Postgres conversation repository for dev
// runs and tests. Summaries join against the sibling listing and user
// stores the same way the SQL version joins tables.
type ChatRepository struct {
	mu            sync.RWMutex
	conversations map[domainchat.ConversationID]*domainchat.Conversation
	messages      map[domainchat.ConversationID][]*domainchat.Message

	listings *ListingRepository
	users    *UserRepository
}

func NewChatRepository(listings *ListingRepository, users *UserRepository) *ChatRepository {
	return &ChatRepository{
		conversations: map[domainchat.ConversationID]*domainchat.Conversation{},
		messages:      map[domainchat.ConversationID][]*domainchat.Message{},
		listings:      listings,
		users:         users,
	}
}

func (r *ChatRepository) ByID(_ context.Context, id domainchat.ConversationID) (*domainchat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conversations[id]
	if !ok {
		return nil, domainchat.ErrConversationNotFound
	}
	copied := *c
	return &copied, nil
}

func (r *ChatRepository) ByTriple(_ context.Context, listingID string, buyerID, sellerID domainuser.ID) (*domainchat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.conversations {
		if string(c.ListingID) == listingID && c.BuyerID == buyerID && c.SellerID == sellerID {
			copied := *c
			return &copied, nil
		}
	}
	return nil, domainchat.ErrConversationNotFound
}

func (r *ChatRepository) Insert(_ context.Context, c *domainchat.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.conversations {
		if existing.ListingID == c.ListingID && existing.BuyerID == c.BuyerID && existing.SellerID == c.SellerID {
			return domainchat.ErrDuplicateConversation
		}
	}
	copied := *c
	r.conversations[c.ID] = &copied
	return nil
}

func (r *ChatRepository) ListForUser(ctx context.Context, userID domainuser.ID, limit, offset int) ([]domainchat.Summary, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var mine []*domainchat.Conversation
	for _, c := range r.conversations {
		if c.Participant(userID) {
			mine = append(mine, c)
		}
	}
	// last activity descending, untouched conversations last, then
	// newest created first; matches the SQL NULLS LAST ordering.
	sort.Slice(mine, func(i, j int) bool {
		a, b := mine[i], mine[j]
		switch {
		case a.LastActivityAt == nil && b.LastActivityAt == nil:
			return a.CreatedAt.After(b.CreatedAt)
		case a.LastActivityAt == nil:
			return false
		case b.LastActivityAt == nil:
			return true
		case !a.LastActivityAt.Equal(*b.LastActivityAt):
			return a.LastActivityAt.After(*b.LastActivityAt)
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})

	total := int64(len(mine))
	if offset >= len(mine) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(mine) {
		end = len(mine)
	}

	summaries := make([]domainchat.Summary, 0, end-offset)
	for _, c := range mine[offset:end] {
		s := domainchat.Summary{Conversation: *c}
		if r.listings != nil {
			if l, err := r.listings.ByID(ctx, c.ListingID); err == nil {
				s.ListingTitle = l.Title
				s.ListingPrice = l.PriceCents
				s.ListingThumbnail = l.ThumbnailURL
			}
		}
		if r.users != nil {
			if partner, err := r.users.ByID(ctx, c.Counterpart(userID)); err == nil {
				s.Counterpart = partner.Profile()
			}
		}
		msgs := r.messages[c.ID]
		if len(msgs) > 0 {
			s.LastMessage = msgs[len(msgs)-1].Body
		}
		for _, m := range msgs {
			if m.SenderID != userID && !m.Read {
				s.Unread++
			}
		}
		summaries = append(summaries, s)
	}
	return summaries, total, nil
}

func (r *ChatRepository) InsertMessage(_ context.Context, m *domainchat.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[m.ConversationID]; !ok {
		return domainchat.ErrConversationNotFound
	}
	copied := *m
	r.messages[m.ConversationID] = append(r.messages[m.ConversationID], &copied)
	return nil
}

func (r *ChatRepository) TouchActivity(_ context.Context, id domainchat.ConversationID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conversations[id]
	if !ok {
		return domainchat.ErrConversationNotFound
	}
	c.Touch(at)
	return nil
}

func (r *ChatRepository) MessagesPage(_ context.Context, id domainchat.ConversationID, limit, offset int) ([]domainchat.Message, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := r.messages[id]
	total := int64(len(msgs))

	// Newest first, like the SQL page query.
	page := make([]domainchat.Message, 0, limit)
	for i := len(msgs) - 1 - offset; i >= 0 && len(page) < limit; i-- {
		page = append(page, *msgs[i])
	}
	return page, total, nil
}

func (r *ChatRepository) MarkRead(_ context.Context, id domainchat.ConversationID, readerID domainuser.ID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var marked int64
	for _, m := range r.messages[id] {
		if m.SenderID != readerID && !m.Read {
			m.Read = true
			marked++
		}
	}
	return marked, nil
}

func (r *ChatRepository) UnreadTotal(_ context.Context, userID domainuser.ID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total int64
	for id, c := range r.conversations {
		if !c.Participant(userID) {
			continue
		}
		for _, m := range r.messages[id] {
			if m.SenderID != userID && !m.Read {
				total++
			}
		}
	}
	return total, nil
}

func (r *ChatRepository) Delete(_ context.Context, id domainchat.ConversationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conversations[id]; !ok {
		return domainchat.ErrConversationNotFound
	}
	delete(r.conversations, id)
	delete(r.messages, id)
	return nil
}

var _ domainchat.Repository = (*ChatRepository)(nil)
