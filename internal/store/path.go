package store

import (
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/agentic-research/imgstore/internal/format"
)

// Filename derives the object-store name for one derivative:
// 32 lowercase hex digits of the identifier plus the format extension.
// This is the only place the two are concatenated; every blob read and
// write goes through it. Identifiers are server-minted and hex-only, so
// path traversal is structurally impossible.
func Filename(id uuid.UUID, f format.Format) string {
	return hex.EncodeToString(id[:]) + "." + f.Ext()
}
