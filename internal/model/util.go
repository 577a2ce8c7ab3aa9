package model

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random identifier with the given prefix, e.g. "sm_3f2a...".
func NewID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
