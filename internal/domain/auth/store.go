package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"trainerleave/internal/platform/querier"
)

var ErrUserNotFound = errors.New("user not found")

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

type AuthUser struct {
	ID       string
	Email    string
	RoleName string
	Status   string
}

func (s *Store) FindUser(ctx context.Context, userID string) (AuthUser, error) {
	var out AuthUser
	err := s.DB.QueryRow(ctx, `
    SELECT id, email, role, status
    FROM users
    WHERE id = $1
  `, userID).Scan(&out.ID, &out.Email, &out.RoleName, &out.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return AuthUser{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return out, err
}
