package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/itchan-dev/newsletter/internal/domain"
	internal_errors "github.com/itchan-dev/newsletter/internal/errors"
)

func (s *Storage) Credential(ctx context.Context, username string) (domain.Credential, error) {
	var cred domain.Credential
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, username, password_hash FROM users WHERE username = $1`, username,
	).Scan(&cred.UserId, &cred.Username, &cred.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Credential{}, fmt.Errorf("user: %w", internal_errors.ErrNotFound)
		}
		return domain.Credential{}, fmt.Errorf("failed to query user: %w", err)
	}
	return cred, nil
}

func (s *Storage) SaveCredential(ctx context.Context, username, passwordHash string) (domain.UserId, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, username, password_hash) VALUES ($1, $2, $3)`,
		id, username, passwordHash,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return id, nil
}
