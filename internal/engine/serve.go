package engine

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/google/uuid"

	"github.com/agentic-research/imgstore/internal/format"
	"github.com/agentic-research/imgstore/internal/store"
)

// Target describes what the caller wants back. A nil Format defaults to
// PNG; zero Width/Height mean "native in that axis".
type Target struct {
	Format *format.Format
	Width  int
	Height int
}

func (t Target) format() format.Format {
	if t.Format == nil {
		return format.PNG
	}
	return *t.Format
}

func (t Target) resized() bool {
	return t.Width > 0 || t.Height > 0
}

// Serve resolves a derivative for id. An exact computed match in the
// target format serves straight from the object store; a miss synthesizes
// the derivative from a sibling format and persists it, so the next
// request hits the fast path. Observing any expired row triggers an
// opportunistic sweep.
func (e *Engine) Serve(ctx context.Context, id uuid.UUID, t Target) ([]byte, format.Format, error) {
	target := t.format()

	rows, err := e.meta.Lookup(ctx, id)
	if err != nil {
		return nil, 0, fmt.Errorf("lookup derivatives: %w", err)
	}

	now := e.now().UTC()
	var live []store.Derivative
	expired := false
	for _, r := range rows {
		if r.ExpiresAt.Before(now) {
			expired = true
			continue
		}
		live = append(live, r)
	}
	if expired {
		e.sweep.RequestClean()
	}
	if len(live) == 0 {
		return nil, 0, ErrNotFound
	}

	for _, r := range live {
		if r.Format == target {
			if !r.Computed {
				return nil, 0, ErrNotYetComputed
			}
			data, err := e.serveComputed(id, target, t)
			return data, target, err
		}
	}

	// Miss: synthesize from the first computed sibling. With no computed
	// sibling there is nothing to transcode from yet.
	var src *store.Derivative
	for i := range live {
		if live[i].Computed {
			src = &live[i]
			break
		}
	}
	if src == nil {
		return nil, 0, ErrNotYetComputed
	}

	data, err := e.synthesize(ctx, id, *src, target, t)
	return data, target, err
}

// serveComputed returns the stored bytes for an exact-format hit,
// re-encoding only when a resize was asked for.
func (e *Engine) serveComputed(id uuid.UUID, target format.Format, t Target) ([]byte, error) {
	raw, err := e.blobs.Read(store.Filename(id, target))
	if err != nil {
		return nil, fmt.Errorf("read derivative: %w", err)
	}
	if !t.resized() {
		// Fast path: stored format equals the target and no transform was
		// requested, so the bytes go out verbatim.
		return raw, nil
	}

	img, err := e.codec.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode derivative: %w", err)
	}
	out, err := e.codec.Encode(e.transform(img, t), target)
	if err != nil {
		return nil, fmt.Errorf("encode derivative: %w", err)
	}
	return out, nil
}

// synthesize builds the missing (id, target) derivative from src and
// persists it. The transcode runs detached: it carries the obligation to
// flip computed once the file is durable, so caller cancellation abandons
// the wait but never the work.
func (e *Engine) synthesize(ctx context.Context, id uuid.UUID, src store.Derivative, target format.Format, t Target) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)

	go func() {
		data, err := e.transcodeAndPersist(id, src, target, t)
		done <- result{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.data, res.err
	}
}

func (e *Engine) transcodeAndPersist(id uuid.UUID, src store.Derivative, target format.Format, t Target) ([]byte, error) {
	raw, err := e.blobs.Read(store.Filename(id, src.Format))
	if err != nil {
		return nil, fmt.Errorf("read source derivative: %w", err)
	}
	img, err := e.codec.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode source derivative: %w", err)
	}
	data, err := e.codec.Encode(e.transform(img, t), target)
	if err != nil {
		return nil, fmt.Errorf("encode derivative: %w", err)
	}

	// Persist the lazy derivative under the source row's expiration. A
	// concurrent first-request may have won the insert; the loser discards
	// its persistence but still answers with its own bytes.
	ctx := context.Background()
	err = e.meta.Insert(ctx, id, target, src.ExpiresAt)
	if errors.Is(err, store.ErrConflict) {
		return data, nil
	}
	if err != nil {
		return nil, fmt.Errorf("insert lazy derivative: %w", err)
	}
	if err := e.blobs.Write(store.Filename(id, target), data); err != nil {
		// Row stays uncomputed and ages out via the sweeper.
		e.log.Error().Err(err).Stringer("id", id).Stringer("format", target).
			Msg("write lazy derivative failed")
		return data, nil
	}
	e.sweep.MarkComputed(id, target)

	e.log.Debug().Stringer("id", id).Stringer("format", target).Msg("synthesized derivative")
	return data, nil
}

// transform applies the requested resize, if any. With one axis absent the
// other follows the source aspect ratio.
func (e *Engine) transform(img image.Image, t Target) image.Image {
	if !t.resized() {
		return img
	}
	return e.codec.Resize(img, t.Width, t.Height)
}
