package gnc

import (
	"strings"

	"github.com/google/uuid"
)

// NewUID generates an entity identifier in the format's GUID style:
// 32 lowercase hex characters without dashes.
func NewUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
