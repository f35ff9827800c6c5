package auth

import (
	"context"
	"errors"
	"time"
)

const StatusActive = "ACTIVE"

var ErrUserInactive = errors.New("user inactive")

type UserFinder interface {
	FindUser(ctx context.Context, userID string) (AuthUser, error)
}

// Service mints access tokens for existing users. Credentials are checked upstream.
type Service struct {
	Users  UserFinder
	Secret string
}

func NewService(users UserFinder, secret string) *Service {
	return &Service{Users: users, Secret: secret}
}

func (s *Service) IssueToken(ctx context.Context, userID string, ttl time.Duration) (string, AuthUser, error) {
	user, err := s.Users.FindUser(ctx, userID)
	if err != nil {
		return "", AuthUser{}, err
	}
	if user.Status != StatusActive {
		return "", AuthUser{}, ErrUserInactive
	}
	token, err := GenerateToken(s.Secret, Claims{UserID: user.ID, RoleName: user.RoleName}, ttl)
	if err != nil {
		return "", AuthUser{}, err
	}
	return token, user, nil
}
