package dto

import "time"

// Conversation describes one buyer/seller thread about a listing.
type Conversation struct {
	ID             string     `json:"id"`
	ListingID      string     `json:"listing_id"`
	BuyerID        string     `json:"buyer_id"`
	SellerID       string     `json:"seller_id"`
	CreatedAt      time.Time  `json:"created_at"`
	LastActivityAt *time.Time `json:"last_activity_at,omitempty"`
}

// ListingCard is the inbox preview of the listing a thread belongs to.
type ListingCard struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	PriceCents   int64  `json:"price_cents"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// Profile is the counterpart's public profile summary.
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// ConversationSummary is one inbox row.
type ConversationSummary struct {
	Conversation Conversation `json:"conversation"`
	Listing      ListingCard  `json:"listing"`
	With         Profile      `json:"with"`
	LastMessage  string       `json:"last_message,omitempty"`
	UnreadCount  int64        `json:"unread_count"`
}

// Pagination reports the window a list response covers.
type Pagination struct {
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"has_more"`
}

// ConversationList is a paginated inbox.
type ConversationList struct {
	Items      []ConversationSummary `json:"items"`
	Pagination Pagination            `json:"pagination"`
}

// ChatMessage contains a single message payload.
type ChatMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Text           string    `json:"text"`
	Read           bool      `json:"read"`
	SentAt         time.Time `json:"sent_at"`
}

// ChatMessageList is a paginated message list in chronological order.
type ChatMessageList struct {
	Items      []ChatMessage `json:"items"`
	Pagination Pagination    `json:"pagination"`
}
