package chat

import (
	"strings"

	"github.com/google/uuid"
)

// CanonicalID parses id as a UUID and returns its lowercase canonical form.
func CanonicalID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", ErrMalformedID
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", ErrMalformedID
	}
	return parsed.String(), nil
}

// ValidateID checks that id is a canonical UUID string.
func ValidateID(id string) error {
	canonical, err := CanonicalID(id)
	if err != nil {
		return err
	}
	if canonical != id {
		return ErrMalformedID
	}
	return nil
}

// NewID returns a time-ordered UUID (v7). Message ids must sort in write
// order so that (created_at, id) is a stable total order.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// NormalizePair orders two canonical user ids so that a conversation between
// A and B has the same key regardless of which side opened it.
func NormalizePair(a, b string) (low, high string) {
	if a < b {
		return a, b
	}
	return b, a
}
