package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Osama092/ThreadGen-Backend/internal/api/model"
)

func (s *Storage) CreateRequest(ctx context.Context, req *model.Request) error {
	query := `
		INSERT INTO requests (
			request_id, user_id, thread_name, tts_text,
			correlation_id, status, video_url, error, created_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		req.RequestID,
		req.UserID,
		req.ThreadName,
		req.TTSText,
		req.CorrelationID,
		req.Status,
		req.VideoURL,
		req.Error,
		req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

// UpdateRequestByCorrelation records the terminal outcome of a generation
// job. Targeted by correlation id so redelivery cannot corrupt the row.
func (s *Storage) UpdateRequestByCorrelation(ctx context.Context, correlationID, status, videoURL, reqErr string) (bool, error) {
	query := `
		UPDATE requests
		SET status = $2, video_url = $3, error = $4
		WHERE correlation_id = $1
	`

	res, err := s.db.ExecContext(ctx, query, correlationID, status, videoURL, reqErr)
	if err != nil {
		return false, fmt.Errorf("failed to update request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return n > 0, nil
}

type RequestFilter struct {
	UserID   string
	Status   string
	PageSize int
	Cursor   *RequestCursor
}

type RequestCursor struct {
	CreatedAt time.Time
	RequestID string
}

// ListRequests pages through a user's generation requests newest-first,
// using a (created_at, request_id) keyset cursor. Fetches one extra row so
// the caller can tell whether more results exist.
func (s *Storage) ListRequests(ctx context.Context, filter RequestFilter) ([]model.Request, error) {
	query := `
		SELECT
			request_id, user_id, thread_name, tts_text,
			correlation_id, status, video_url, error, created_at
		FROM requests
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.UserID != "" {
		query += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, request_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.RequestID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, request_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var requests []model.Request
	if err := s.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return requests, nil
}
