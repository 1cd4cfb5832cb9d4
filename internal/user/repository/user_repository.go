package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dgibisch/doit2-sub002/internal/user/domain"
	"github.com/dgibisch/doit2-sub002/pkg/store"
)

// UserRepository defines data access for user profiles.
type UserRepository interface {
	// FindByID returns nil without error when the profile does not exist.
	FindByID(ctx context.Context, id string) (*domain.Profile, error)

	// Ensure creates the profile document if it is absent. Existing
	// profiles are left untouched.
	Ensure(ctx context.Context, id, name string) (*domain.Profile, error)

	// UpdateRating writes the recomputed aggregate fields.
	UpdateRating(ctx context.Context, id string, rating float64, count int) error

	// SetBookmarks overwrites the bookmark list.
	SetBookmarks(ctx context.Context, id string, bookmarks []string) error

	// SetLastRead records when the user last opened the chat.
	SetLastRead(ctx context.Context, id, chatID string, at time.Time) error

	// SetFCMTokens overwrites the device token list.
	SetFCMTokens(ctx context.Context, id string, tokens []string) error
}

// storeUserRepository implements UserRepository on the document store.
type storeUserRepository struct {
	store store.Store
}

func NewUserRepository(s store.Store) UserRepository {
	return &storeUserRepository{store: s}
}

func (r *storeUserRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	doc, err := r.store.Get(ctx, store.CollectionUsers, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return profileFromDoc(doc), nil
}

func (r *storeUserRepository) Ensure(ctx context.Context, id, name string) (*domain.Profile, error) {
	existing, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	profile := &domain.Profile{
		ID:        id,
		Name:      name,
		Bookmarks: []string{},
		CreatedAt: time.Now(),
	}
	err = r.store.Set(ctx, store.CollectionUsers, id, map[string]interface{}{
		"name":        profile.Name,
		"rating":      0.0,
		"ratingCount": 0,
		"bookmarks":   []string{},
		"createdAt":   store.ServerTimestamp,
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *storeUserRepository) UpdateRating(ctx context.Context, id string, rating float64, count int) error {
	return r.store.Update(ctx, store.CollectionUsers, id, map[string]interface{}{
		"rating":      rating,
		"ratingCount": count,
	})
}

func (r *storeUserRepository) SetBookmarks(ctx context.Context, id string, bookmarks []string) error {
	return r.store.Update(ctx, store.CollectionUsers, id, map[string]interface{}{
		"bookmarks": bookmarks,
	})
}

func (r *storeUserRepository) SetLastRead(ctx context.Context, id, chatID string, at time.Time) error {
	profile, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if profile == nil {
		return store.ErrNotFound
	}

	lastRead := make(map[string]interface{}, len(profile.LastRead)+1)
	for chat, t := range profile.LastRead {
		lastRead[chat] = t
	}
	lastRead[chatID] = at

	return r.store.Update(ctx, store.CollectionUsers, id, map[string]interface{}{
		"lastRead": lastRead,
	})
}

func (r *storeUserRepository) SetFCMTokens(ctx context.Context, id string, tokens []string) error {
	return r.store.Update(ctx, store.CollectionUsers, id, map[string]interface{}{
		"fcmTokens": tokens,
	})
}

func profileFromDoc(doc *store.Document) *domain.Profile {
	profile := &domain.Profile{
		ID:          doc.ID,
		Name:        store.GetString(doc.Data, "name"),
		Rating:      store.GetFloat(doc.Data, "rating"),
		RatingCount: store.GetInt(doc.Data, "ratingCount"),
		Bookmarks:   store.GetStringSlice(doc.Data, "bookmarks"),
		FCMTokens:   store.GetStringSlice(doc.Data, "fcmTokens"),
		CreatedAt:   store.GetTime(doc.Data, "createdAt"),
	}
	if raw := store.GetMap(doc.Data, "lastRead"); raw != nil {
		profile.LastRead = make(map[string]time.Time, len(raw))
		for chatID := range raw {
			profile.LastRead[chatID] = store.GetTime(raw, chatID)
		}
	}
	return profile
}
