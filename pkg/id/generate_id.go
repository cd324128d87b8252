// Package id generates identifiers for audit events.
package id

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// New returns a UUIDv7 as exactly 32 lowercase hex characters, so ids sort by
// creation time. A random v4 is used if the v7 generator fails.
func New() string {
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}
	return hex.EncodeToString(u[:])
}
