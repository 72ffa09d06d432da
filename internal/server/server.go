// Package server is the HTTP façade over the engine: it streams request
// bytes in, maps engine errors to status codes, and writes image bytes
// out. All lifecycle semantics live in the engine.
package server

import (
	_ "embed"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/agentic-research/imgstore/internal/engine"
)

//go:embed index.html
var indexHTML []byte

// Server carries the gin wiring for the upload and serve endpoints.
type Server struct {
	engine  *engine.Engine
	maxBody int64 // upload body limit in bytes, 0 = unlimited
	log     zerolog.Logger
}

func New(e *engine.Engine, maxBody int64, log zerolog.Logger) *Server {
	return &Server{engine: e, maxBody: maxBody, log: log}
}

// Router builds the route table:
//
//	GET  /                 static upload form
//	POST /api/upload       multipart original upload
//	GET  /api/:id          derivative fetch, optionally transcoded
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLog())

	r.GET("/", s.index)

	api := r.Group("/api")
	api.POST("/upload", s.upload)
	api.GET("/:id", s.serveImage)

	return r
}

func (s *Server) index(c *gin.Context) {
	c.Data(200, "text/html; charset=utf-8", indexHTML)
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}
