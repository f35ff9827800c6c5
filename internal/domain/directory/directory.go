// Package directory reads trainer and staff records owned by the user directory.
package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"trainerleave/internal/domain/auth"
	"trainerleave/internal/platform/querier"
)

var ErrTrainerNotFound = errors.New("trainer not found")

type Trainer struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Category    string `json:"category"`
	Status      string `json:"status"`
}

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) Trainer(ctx context.Context, trainerID string) (Trainer, error) {
	var t Trainer
	err := s.DB.QueryRow(ctx, `
    SELECT t.id, u.display_name, u.email, t.category, t.status
    FROM trainers t
    JOIN users u ON u.id = t.id
    WHERE t.id = $1
  `, trainerID).Scan(&t.ID, &t.DisplayName, &t.Email, &t.Category, &t.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Trainer{}, fmt.Errorf("%w: %s", ErrTrainerNotFound, trainerID)
	}
	return t, err
}

// ApproverIDs lists active ADMIN and HR users, the audience of new and withdrawn requests.
func (s *Store) ApproverIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id
    FROM users
    WHERE role = ANY($1) AND status = $2
    ORDER BY id
  `, []string{auth.RoleAdmin, auth.RoleHR}, auth.StatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
