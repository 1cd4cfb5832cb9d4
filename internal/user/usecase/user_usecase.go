package usecase

import (
	"context"

	"github.com/dgibisch/doit2-sub002/internal/apperrors"
	"github.com/dgibisch/doit2-sub002/internal/user/domain"
	"github.com/dgibisch/doit2-sub002/internal/user/repository"
)

// UserUsecase covers profiles, bookmarks and device tokens.
type UserUsecase interface {
	// EnsureProfile creates the profile document on first contact.
	EnsureProfile(ctx context.Context, userID, name string) (*domain.Profile, error)

	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)

	// ToggleBookmark adds or removes the task from the user's bookmarks
	// and reports whether it is bookmarked afterwards. Read-modify-write,
	// so rapid toggling cannot produce double entries.
	ToggleBookmark(ctx context.Context, userID, taskID string) (bool, error)

	Bookmarks(ctx context.Context, userID string) ([]string, error)

	RegisterDeviceToken(ctx context.Context, userID, token string) error
	UnregisterDeviceToken(ctx context.Context, userID, token string) error
}

type userUsecase struct {
	userRepo repository.UserRepository
}

func NewUserUsecase(userRepo repository.UserRepository) UserUsecase {
	return &userUsecase{userRepo: userRepo}
}

func (u *userUsecase) EnsureProfile(ctx context.Context, userID, name string) (*domain.Profile, error) {
	profile, err := u.userRepo.Ensure(ctx, userID, name)
	if err != nil {
		return nil, apperrors.Store(err, "failed to ensure profile")
	}
	return profile, nil
}

func (u *userUsecase) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	profile, err := u.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Store(err, "failed to load profile")
	}
	if profile == nil {
		return nil, apperrors.NotFound("user %s not found", userID)
	}
	return profile, nil
}

func (u *userUsecase) ToggleBookmark(ctx context.Context, userID, taskID string) (bool, error) {
	profile, err := u.GetProfile(ctx, userID)
	if err != nil {
		return false, err
	}

	bookmarks := make([]string, 0, len(profile.Bookmarks)+1)
	removed := false
	for _, id := range profile.Bookmarks {
		if id == taskID {
			removed = true
			continue
		}
		bookmarks = append(bookmarks, id)
	}
	if !removed {
		bookmarks = append(bookmarks, taskID)
	}

	if err := u.userRepo.SetBookmarks(ctx, userID, bookmarks); err != nil {
		return false, apperrors.Store(err, "failed to update bookmarks")
	}
	return !removed, nil
}

func (u *userUsecase) Bookmarks(ctx context.Context, userID string) ([]string, error) {
	profile, err := u.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.Bookmarks == nil {
		return []string{}, nil
	}
	return profile.Bookmarks, nil
}

func (u *userUsecase) RegisterDeviceToken(ctx context.Context, userID, token string) error {
	profile, err := u.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	for _, t := range profile.FCMTokens {
		if t == token {
			return nil
		}
	}
	return u.setTokens(ctx, userID, append(profile.FCMTokens, token))
}

func (u *userUsecase) UnregisterDeviceToken(ctx context.Context, userID, token string) error {
	profile, err := u.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	tokens := make([]string, 0, len(profile.FCMTokens))
	for _, t := range profile.FCMTokens {
		if t != token {
			tokens = append(tokens, t)
		}
	}
	return u.setTokens(ctx, userID, tokens)
}

func (u *userUsecase) setTokens(ctx context.Context, userID string, tokens []string) error {
	if err := u.userRepo.SetFCMTokens(ctx, userID, tokens); err != nil {
		return apperrors.Store(err, "failed to update device tokens")
	}
	return nil
}
