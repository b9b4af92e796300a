package handler

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Osama092/ThreadGen-Backend/internal/api/storage"
)

// Request cursors are base64("unixnano|request_id"): the creation timestamp
// orders the keyset scan and the id breaks ties between rows created in the
// same nanosecond.

func DecodeRequestCursor(raw string) (*storage.RequestCursor, error) {
	if raw == "" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, err
	}

	at, id, ok := strings.Cut(string(decoded), "|")
	if !ok || id == "" {
		return nil, fmt.Errorf("invalid cursor format")
	}

	nanos, err := strconv.ParseInt(at, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}

	return &storage.RequestCursor{
		CreatedAt: time.Unix(0, nanos),
		RequestID: id,
	}, nil
}

func EncodeRequestCursor(cursor *storage.RequestCursor) (string, error) {
	raw := fmt.Sprintf("%d|%s", cursor.CreatedAt.UnixNano(), cursor.RequestID)
	return base64.StdEncoding.EncodeToString([]byte(raw)), nil
}
