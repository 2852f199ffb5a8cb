package repository

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
)

// Cursor is a feed position: the last seen (created_at, id) pair.
type Cursor struct {
	CreatedAt time.Time
	ID        uint
}

// DefaultPageSize applies when a caller passes limit 0.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// EncodeCursor returns the opaque token for c.
func EncodeCursor(c Cursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + ":" + strconv.FormatUint(uint64(c.ID), 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor. The empty string is
// the start of the feed.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, models.NewValidationError("invalid cursor")
	}
	nanos, id, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, models.NewValidationError("invalid cursor")
	}
	ts, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, models.NewValidationError("invalid cursor")
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil || n == 0 {
		return nil, models.NewValidationError("invalid cursor")
	}
	return &Cursor{CreatedAt: time.Unix(0, ts), ID: uint(n)}, nil
}

// PageLimit validates a keyset page size.
func PageLimit(limit int) (int, error) {
	if limit < 0 || limit > MaxPageSize {
		return 0, models.NewValidationError("limit must be between 0 and 100")
	}
	if limit == 0 {
		return DefaultPageSize, nil
	}
	return limit, nil
}
