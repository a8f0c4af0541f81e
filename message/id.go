package message

import "github.com/google/uuid"

// NewID returns a process-unique identifier (UUIDv7) used for correlation and message ids.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
