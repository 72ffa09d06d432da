package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentic-research/imgstore/internal/engine"
	"github.com/agentic-research/imgstore/internal/format"
)

// upload accepts a multipart body, concatenates every part into one byte
// buffer (multi-part bodies are accepted as a single image) and hands it to
// the ingest pipeline.
//
// Invalid image bytes answer 200 with a human-readable message rather than
// a 4xx. Clients of the historical service depend on that shape.
func (s *Server) upload(c *gin.Context) {
	if s.maxBody > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBody)
	}

	var ttl time.Duration
	if v := c.Query("ttl_secs"); v != "" {
		secs, err := strconv.ParseInt(v, 10, 64)
		if err != nil || secs <= 0 {
			c.String(http.StatusBadRequest, "ttl_secs must be a positive integer")
			return
		}
		ttl = time.Duration(secs) * time.Second
	}

	mr, err := c.Request.MultipartReader()
	if err != nil {
		c.String(http.StatusBadRequest, "expected a multipart body")
		return
	}

	var body bytes.Buffer
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.String(http.StatusBadRequest, "malformed multipart body")
			return
		}
		if _, err := io.Copy(&body, part); err != nil {
			s.log.Warn().Err(err).Msg("reading upload part failed")
			c.String(http.StatusInternalServerError, "could not read upload")
			return
		}
	}

	id, err := s.engine.Ingest(c.Request.Context(), body.Bytes(), ttl)
	switch {
	case errors.Is(err, engine.ErrUnsupportedFormat):
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("Something went wrong: that does not look like an image."))
	case err != nil:
		s.log.Error().Err(err).Msg("ingest failed")
		c.String(http.StatusInternalServerError, "internal error")
	default:
		msg := fmt.Sprintf("Good job! file has uuid: %s", id)
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(msg))
	}
}

// serveImage answers GET /api/:id?format=&width=&height=. Empty query
// values are treated as absent; unknown format tags are rejected with 400.
func (s *Server) serveImage(c *gin.Context) {
	id, err := engine.ParseIdentifier(c.Param("id"))
	if err != nil {
		c.String(http.StatusBadRequest, "bad image identifier")
		return
	}

	var target engine.Target
	if v := c.Query("format"); v != "" {
		f, err := format.Parse(v)
		if err != nil {
			c.String(http.StatusBadRequest, "unsupported image format %q", v)
			return
		}
		target.Format = &f
	}
	if target.Width, err = dimension(c.Query("width")); err != nil {
		c.String(http.StatusBadRequest, "width must be a positive integer")
		return
	}
	if target.Height, err = dimension(c.Query("height")); err != nil {
		c.String(http.StatusBadRequest, "height must be a positive integer")
		return
	}

	data, f, err := s.engine.Serve(c.Request.Context(), id, target)
	switch {
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, engine.ErrNotYetComputed):
		c.String(http.StatusNotFound, "image not found")
	case err != nil:
		s.log.Error().Err(err).Stringer("id", id).Msg("serve failed")
		c.String(http.StatusInternalServerError, "internal error")
	default:
		c.Data(http.StatusOK, f.MIME(), data)
	}
}

// dimension parses an optional positive u32 query value; empty is absent.
func dimension(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("bad dimension %q", v)
	}
	return int(n), nil
}
