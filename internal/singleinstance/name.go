package singleinstance

import (
	"errors"
	"os"
	"os/user"
	"regexp"
	"strings"
)

// ErrAlreadyRunning is returned by TryLock when another instance holds the lock.
var ErrAlreadyRunning = errors.New("another instance is already running")

var invalidUsernameRune = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeUsername normalizes a username for use in lock names.
func sanitizeUsername(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return invalidUsernameRune.ReplaceAllString(value, "_")
}

// currentUsername prefers the environment so the lock name is stable across
// elevated and non-elevated launches of the same account.
func currentUsername() string {
	for _, key := range []string{"USERNAME", "USER"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	if current, err := user.Current(); err == nil {
		return current.Username
	}
	return ""
}
