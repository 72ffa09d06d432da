package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agentic-research/imgstore/internal/format"
	"github.com/agentic-research/imgstore/internal/store"
)

// Ingest accepts an uploaded original and returns its minted identifier
// immediately. The expensive decode/encode runs on a detached worker; until
// it flips the computed flag, reads answer ErrNotYetComputed.
//
// Originals are always recorded and stored as PNG regardless of the
// uploaded encoding. The sniff exists to reject non-image bytes early; a
// uniform storage format keeps the transcode path to a single decode
// branch.
func (e *Engine) Ingest(ctx context.Context, data []byte, requestedTTL time.Duration) (uuid.UUID, error) {
	expiresAt, err := e.expiry(requestedTTL)
	if err != nil {
		return uuid.Nil, err
	}

	if _, err := e.codec.Sniff(data); err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, err)
	}

	// Mint until the insert lands. The exists check keeps the common case
	// to one round trip; the conflict branch covers the check-then-insert
	// race with a fresh identifier.
	var id uuid.UUID
	for {
		id = uuid.New()

		exists, err := e.meta.IdentifierExists(ctx, id)
		if err != nil {
			return uuid.Nil, fmt.Errorf("mint identifier: %w", err)
		}
		if exists {
			continue
		}

		err = e.meta.Insert(ctx, id, format.PNG, expiresAt)
		if errors.Is(err, store.ErrConflict) {
			continue
		}
		if err != nil {
			return uuid.Nil, fmt.Errorf("insert original row: %w", err)
		}
		break
	}

	// Detached on purpose: the worker carries the obligation to flip
	// computed, so request cancellation must not reach it.
	go e.computeOriginal(id, data)

	e.log.Debug().Stringer("id", id).Time("expires_at", expiresAt).Msg("ingested image")
	return id, nil
}

// computeOriginal decodes the uploaded bytes, re-encodes them as PNG,
// persists the file and signals the computed flip. Failures are logged and
// swallowed; the uncomputed row ages out via the sweeper.
func (e *Engine) computeOriginal(id uuid.UUID, data []byte) {
	img, err := e.codec.Decode(data)
	if err != nil {
		e.log.Error().Err(err).Stringer("id", id).Msg("decode original failed")
		return
	}

	out, err := e.codec.Encode(img, format.PNG)
	if err != nil {
		e.log.Error().Err(err).Stringer("id", id).Msg("encode original failed")
		return
	}

	if err := e.blobs.Write(store.Filename(id, format.PNG), out); err != nil {
		e.log.Error().Err(err).Stringer("id", id).Msg("write original failed")
		return
	}

	e.sweep.MarkComputed(id, format.PNG)
}
