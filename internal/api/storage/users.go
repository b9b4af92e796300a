package storage

import (
	"context"
	"fmt"

	"github.com/Osama092/ThreadGen-Backend/internal/api/model"
)

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (
			user_id, user_name, email, voice_cloned,
			tts_used, videos_watched, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		user.UserID,
		user.UserName,
		user.Email,
		user.VoiceCloned,
		user.TTSUsed,
		user.VideosWatch,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	var user model.User
	query := `
		SELECT
			user_id, user_name, email, voice_cloned,
			tts_used, videos_watched, created_at, updated_at
		FROM users
		WHERE user_id = $1
	`

	if err := s.db.GetContext(ctx, &user, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get user: %w", notFound(err))
	}
	return &user, nil
}

// SetVoiceCloned marks a user's voice model as ready. Written only by the
// cloning completion listener.
func (s *Storage) SetVoiceCloned(ctx context.Context, userID string, cloned bool) (bool, error) {
	query := `
		UPDATE users
		SET voice_cloned = $2, updated_at = NOW()
		WHERE user_id = $1
	`

	res, err := s.db.ExecContext(ctx, query, userID, cloned)
	if err != nil {
		return false, fmt.Errorf("failed to update voice_cloned: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n > 0, nil
}

// AddKPIs increments a user's usage counters.
func (s *Storage) AddKPIs(ctx context.Context, userID string, ttsUsed, videosWatched int) error {
	query := `
		UPDATE users
		SET tts_used = tts_used + $2,
		    videos_watched = videos_watched + $3,
		    updated_at = NOW()
		WHERE user_id = $1
	`

	res, err := s.db.ExecContext(ctx, query, userID, ttsUsed, videosWatched)
	if err != nil {
		return fmt.Errorf("failed to add user KPIs: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to add user KPIs: %w", ErrNotFound)
	}
	return nil
}
