package domain

import "time"

// Profile is the rating-bearing user document. Rating always equals the
// arithmetic mean over all reviews of this user and RatingCount their
// count; both are recomputed in full after every review write.
type Profile struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Rating      float64   `json:"rating"`
	RatingCount int       `json:"rating_count"`
	Bookmarks   []string  `json:"bookmarks"`
	CreatedAt   time.Time `json:"created_at"`

	// LastRead holds, per chat id, when the user last opened that chat.
	// The unread projection compares it against the chat's last message.
	LastRead map[string]time.Time `json:"last_read,omitempty"`

	// FCMTokens are the device tokens push notifications go to.
	FCMTokens []string `json:"-"`
}

// PublicProfile is the subset of a profile other users may see.
type PublicProfile struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Rating      float64 `json:"rating"`
	RatingCount int     `json:"rating_count"`
}

func (p *Profile) Public() *PublicProfile {
	return &PublicProfile{ID: p.ID, Name: p.Name, Rating: p.Rating, RatingCount: p.RatingCount}
}
