package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// Username length bounds, in characters, after trimming.
const (
	MinUsernameLen = 3
	MaxUsernameLen = 30
)

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrUsernameLength   = errors.New("username length out of range")
)

// Username is a registered display name. Matching is exact and
// case-sensitive.
type Username struct {
	Name      string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// NormalizeUsername trims surrounding whitespace and checks the length.
func NormalizeUsername(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", ErrUsernameRequired
	}
	if n := utf8.RuneCountInString(name); n < MinUsernameLen || n > MaxUsernameLen {
		return "", ErrUsernameLength
	}
	return name, nil
}
