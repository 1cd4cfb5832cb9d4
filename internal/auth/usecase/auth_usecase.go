package usecase

import (
	"context"
	"errors"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"

	"github.com/dgibisch/doit2-sub002/pkg/config"
)

// Identity is the authenticated caller. Every protocol operation requires
// one; there is no anonymous actor.
type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// AuthUsecase resolves bearer tokens into identities.
type AuthUsecase interface {
	// ValidateToken verifies a Firebase ID token when Firebase is
	// configured, otherwise a locally signed dev token.
	ValidateToken(ctx context.Context, token string) (*Identity, error)

	// IssueDevToken signs a local token for the given identity. Dev mode
	// only; the route is not registered in prod.
	IssueDevToken(userID, name string) (string, error)
}

// authUsecase implements AuthUsecase.
type authUsecase struct {
	config       *config.Config
	firebaseAuth *fbauth.Client // nil when running without Firebase
}

func NewAuthUsecase(cfg *config.Config, firebaseAuth *fbauth.Client) AuthUsecase {
	return &authUsecase{
		config:       cfg,
		firebaseAuth: firebaseAuth,
	}
}

func (u *authUsecase) ValidateToken(ctx context.Context, tokenString string) (*Identity, error) {
	if u.firebaseAuth != nil {
		token, err := u.firebaseAuth.VerifyIDToken(ctx, tokenString)
		if err != nil {
			return nil, errors.New("invalid token")
		}
		name, _ := token.Claims["name"].(string)
		return &Identity{UserID: token.UID, Name: name}, nil
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(u.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, errors.New("invalid token claims")
	}
	name, _ := claims["name"].(string)

	return &Identity{UserID: userID, Name: name}, nil
}

func (u *authUsecase) IssueDevToken(userID, name string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"name":    name,
		"exp":     time.Now().Add(u.config.JWTExpiry).Unix(),
		"iat":     time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(u.config.JWTSecret))
}
