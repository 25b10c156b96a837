package domain

import (
	"strings"
	"time"
)

// User is a buyer identity. Created by the registration collaborator,
// immutable from the engine's point of view; stock units reference it,
// they never own it.
type User struct {
	ID        int64
	GrowID    string
	CreatedAt time.Time
}

// NormalizeHandle canonicalizes an external GrowID handle. The source
// system stores handles upper-cased.
func NormalizeHandle(handle string) string {
	return strings.ToUpper(strings.TrimSpace(handle))
}
