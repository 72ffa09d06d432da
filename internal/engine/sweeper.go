package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentic-research/imgstore/internal/format"
	"github.com/agentic-research/imgstore/internal/store"
)

// sweeperCapacity bounds the control channel. MarkComputed producers block
// when it fills; CleanExpired producers drop instead.
const sweeperCapacity = 1024

// sweepMsg is one control message. clean selects an expiry sweep,
// otherwise the message flips computed for (id, f).
type sweepMsg struct {
	clean bool
	id    uuid.UUID
	f     format.Format
}

// Sweeper is the single long-lived actor behind the control channel. Every
// message is handled in its own goroutine so a slow cleanup never
// head-of-line-blocks computed flips.
type Sweeper struct {
	meta  *store.Metadata
	blobs *store.Blobs
	ch    chan sweepMsg
	log   zerolog.Logger
}

func NewSweeper(meta *store.Metadata, blobs *store.Blobs, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		meta:  meta,
		blobs: blobs,
		ch:    make(chan sweepMsg, sweeperCapacity),
		log:   log,
	}
}

// Run drains the control channel until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.ch:
			go s.handle(ctx, msg)
		}
	}
}

// MarkComputed records that the bytes for (id, f) are durable. Blocks when
// the channel is full: the flip carries an obligation and must not be lost.
func (s *Sweeper) MarkComputed(id uuid.UUID, f format.Format) {
	s.ch <- sweepMsg{id: id, f: f}
}

// RequestClean asks for an expiry sweep. Best-effort: dropped when the
// channel is full, another read will re-trigger it.
func (s *Sweeper) RequestClean() {
	select {
	case s.ch <- sweepMsg{clean: true}:
	default:
	}
}

func (s *Sweeper) handle(ctx context.Context, msg sweepMsg) {
	if msg.clean {
		s.cleanExpired(ctx)
		return
	}
	if err := s.meta.MarkComputed(ctx, msg.id, msg.f); err != nil {
		s.log.Error().Err(err).Stringer("id", msg.id).Stringer("format", msg.f).
			Msg("mark computed failed")
	}
}

// cleanExpired deletes expired computed rows and removes their files.
// Per-file removal errors are logged, never propagated: the row is already
// gone and the orphan is harmless until the next sweep of the directory.
func (s *Sweeper) cleanExpired(ctx context.Context) {
	gone, err := s.meta.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		s.log.Error().Err(err).Msg("delete expired rows failed")
		return
	}
	for _, d := range gone {
		name := store.Filename(d.Identifier, d.Format)
		if err := s.blobs.Remove(name); err != nil {
			s.log.Warn().Err(err).Str("file", name).Msg("remove expired file failed")
		}
	}
	if len(gone) > 0 {
		s.log.Debug().Int("count", len(gone)).Msg("swept expired derivatives")
	}
}
