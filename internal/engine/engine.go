// Package engine drives the image lifecycle: ingest originals, serve and
// lazily synthesize derivatives, and sweep expired rows and files. It owns
// the metadata and object stores plus the codec gateway; neither store
// knows the pipelines exist.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentic-research/imgstore/internal/codec"
	"github.com/agentic-research/imgstore/internal/store"
)

var (
	// ErrNotFound: no non-expired row exists for the identifier.
	ErrNotFound = errors.New("image not found")
	// ErrNotYetComputed: a row exists but its bytes are not durable yet.
	ErrNotYetComputed = errors.New("image not yet computed")
	// ErrUnsupportedFormat: sniff failed or the client named an unknown tag.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrBadIdentifier: the identifier string does not parse.
	ErrBadIdentifier = errors.New("bad image identifier")
	// ErrNoTTL: the client requested no TTL and no server cap is configured.
	ErrNoTTL = errors.New("no ttl requested and no server ttl configured")
)

// Engine wires the stores, the codec gateway and the sweeper into the
// ingest and serve pipelines.
type Engine struct {
	meta  *store.Metadata
	blobs *store.Blobs
	codec *codec.Gateway
	sweep *Sweeper

	// maxTTL caps client-requested lifetimes; zero means no server cap.
	maxTTL time.Duration

	log zerolog.Logger
	now func() time.Time
}

func New(meta *store.Metadata, blobs *store.Blobs, gw *codec.Gateway, sweep *Sweeper, maxTTL time.Duration, log zerolog.Logger) *Engine {
	return &Engine{
		meta:   meta,
		blobs:  blobs,
		codec:  gw,
		sweep:  sweep,
		maxTTL: maxTTL,
		log:    log,
		now:    time.Now,
	}
}

// ParseIdentifier parses the wire form of an identifier (32 hex digits,
// canonical uuid forms accepted too).
func ParseIdentifier(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrBadIdentifier, s)
	}
	return id, nil
}
