package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Osama092/ThreadGen-Backend/internal/api/model"
)

// KeyExists is the uniqueness check backing idempotent API key generation.
func (s *Storage) KeyExists(ctx context.Context, apiKey string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM api_keys WHERE api_key = $1)`

	if err := s.db.GetContext(ctx, &exists, query, apiKey); err != nil {
		return false, fmt.Errorf("failed to check api key existence: %w", err)
	}
	return exists, nil
}

func (s *Storage) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	query := `
		INSERT INTO api_keys (api_key, user_id, key_name, n_uses, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		key.APIKey,
		key.UserID,
		key.KeyName,
		key.NUses,
		key.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

func (s *Storage) GetAPIKey(ctx context.Context, apiKey string) (*model.APIKey, error) {
	var key model.APIKey
	query := `
		SELECT api_key, user_id, key_name, n_uses, created_at
		FROM api_keys
		WHERE api_key = $1
	`

	if err := s.db.GetContext(ctx, &key, query, apiKey); err != nil {
		return nil, fmt.Errorf("failed to get api key: %w", notFound(err))
	}
	return &key, nil
}

// GetUserAPIKey returns the key only when it belongs to the given user.
func (s *Storage) GetUserAPIKey(ctx context.Context, apiKey, userID string) (*model.APIKey, error) {
	var key model.APIKey
	query := `
		SELECT api_key, user_id, key_name, n_uses, created_at
		FROM api_keys
		WHERE api_key = $1 AND user_id = $2
	`

	if err := s.db.GetContext(ctx, &key, query, apiKey, userID); err != nil {
		return nil, fmt.Errorf("failed to get user api key: %w", notFound(err))
	}
	return &key, nil
}

func (s *Storage) ListAPIKeysByUser(ctx context.Context, userID string) ([]model.APIKey, error) {
	var keys []model.APIKey
	query := `
		SELECT api_key, user_id, key_name, n_uses, created_at
		FROM api_keys
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	if err := s.db.SelectContext(ctx, &keys, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	return keys, nil
}

// IncrementKeyUses bumps the usage counter by n (one per generated item).
func (s *Storage) IncrementKeyUses(ctx context.Context, apiKey string, n int) error {
	query := `UPDATE api_keys SET n_uses = n_uses + $2 WHERE api_key = $1`

	if _, err := s.db.ExecContext(ctx, query, apiKey, n); err != nil {
		return fmt.Errorf("failed to increment key uses: %w", err)
	}
	return nil
}

func (s *Storage) RenameAPIKey(ctx context.Context, apiKey, keyName string) error {
	query := `UPDATE api_keys SET key_name = $2 WHERE api_key = $1`

	res, err := s.db.ExecContext(ctx, query, apiKey, keyName)
	if err != nil {
		return fmt.Errorf("failed to rename api key: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to rename api key: %w", ErrNotFound)
	}
	return nil
}

func (s *Storage) DeleteAPIKey(ctx context.Context, apiKey string) error {
	query := `DELETE FROM api_keys WHERE api_key = $1`

	res, err := s.db.ExecContext(ctx, query, apiKey)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to delete api key: %w", ErrNotFound)
	}
	return nil
}

// GenerateUniqueKey loops key generation against the uniqueness check until
// an unclaimed key is found, then inserts it.
func (s *Storage) GenerateUniqueKey(ctx context.Context, userID, keyName string, generate func() string) (*model.APIKey, error) {
	const maxAttempts = 10

	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := generate()
		exists, err := s.KeyExists(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		key := &model.APIKey{
			APIKey:    candidate,
			UserID:    userID,
			KeyName:   keyName,
			NUses:     0,
			CreatedAt: time.Now(),
		}
		if err := s.CreateAPIKey(ctx, key); err != nil {
			return nil, err
		}
		return key, nil
	}
	return nil, errors.New("failed to generate a unique api key")
}
