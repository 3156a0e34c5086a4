package chat

import "github.com/google/uuid"

const maxSessionIDLength = 128

// NewSessionID mints a fresh opaque session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// ValidSessionID reports whether id is safe to use as a transcript file or
// object name.
func ValidSessionID(id string) bool {
	if id == "" || len(id) > maxSessionIDLength || id == "." || id == ".." {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
