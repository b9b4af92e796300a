package storage

import (
	"context"
	"fmt"

	"github.com/Osama092/ThreadGen-Backend/internal/api/model"
)

func (s *Storage) CreateThread(ctx context.Context, thread *model.Thread) error {
	query := `
		INSERT INTO threads (
			thread_id, user_id, thread_name, description, tts_text,
			color, smart_pause, subtitle, fast_progress,
			correlation_id, status, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		thread.ThreadID,
		thread.UserID,
		thread.ThreadName,
		thread.Description,
		thread.TTSText,
		thread.Color,
		thread.SmartPause,
		thread.Subtitle,
		thread.FastProgress,
		thread.CorrelationID,
		thread.Status,
		thread.CreatedAt,
		thread.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}
	return nil
}

func (s *Storage) GetThreadByName(ctx context.Context, threadName string) (*model.Thread, error) {
	var thread model.Thread
	query := `
		SELECT
			thread_id, user_id, thread_name, description, tts_text,
			color, smart_pause, subtitle, fast_progress,
			correlation_id, status, created_at, updated_at
		FROM threads
		WHERE thread_name = $1
	`

	if err := s.db.GetContext(ctx, &thread, query, threadName); err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", notFound(err))
	}
	return &thread, nil
}

func (s *Storage) GetUserThread(ctx context.Context, threadName, userID string) (*model.Thread, error) {
	var thread model.Thread
	query := `
		SELECT
			thread_id, user_id, thread_name, description, tts_text,
			color, smart_pause, subtitle, fast_progress,
			correlation_id, status, created_at, updated_at
		FROM threads
		WHERE thread_name = $1 AND user_id = $2
	`

	if err := s.db.GetContext(ctx, &thread, query, threadName, userID); err != nil {
		return nil, fmt.Errorf("failed to get user thread: %w", notFound(err))
	}
	return &thread, nil
}

func (s *Storage) ListThreadsByUser(ctx context.Context, userID string) ([]model.Thread, error) {
	var threads []model.Thread
	query := `
		SELECT
			thread_id, user_id, thread_name, description, tts_text,
			color, smart_pause, subtitle, fast_progress,
			correlation_id, status, created_at, updated_at
		FROM threads
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	if err := s.db.SelectContext(ctx, &threads, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	return threads, nil
}

// UpdateThreadStatusByCorrelation flips a thread's status once its build or
// transcription job reports a terminal outcome. Returns false when no thread
// carries the correlation id (e.g. redelivery after the row already moved).
func (s *Storage) UpdateThreadStatusByCorrelation(ctx context.Context, correlationID, status string) (bool, error) {
	query := `
		UPDATE threads
		SET status = $2, updated_at = NOW()
		WHERE correlation_id = $1 AND status <> $2
	`

	res, err := s.db.ExecContext(ctx, query, correlationID, status)
	if err != nil {
		return false, fmt.Errorf("failed to update thread status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n > 0, nil
}
