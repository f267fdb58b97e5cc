package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ccollicutt/cs2log/pkg/store"
)

const serverContextKey = "server"

// requestLogger logs one line per request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("bytes", c.Writer.Size()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// bodyLimit caps the request body at n bytes. Reads past the cap fail with
// *http.MaxBytesError.
func bodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// tokenAuth requires "Authorization: Bearer <token>" matching one of tokens.
// With no tokens configured every request passes.
func tokenAuth(tokens []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(tokens) == 0 {
			c.Next()
			return
		}

		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if ok && got != "" {
			for _, tok := range tokens {
				if subtle.ConstantTimeCompare([]byte(got), []byte(tok)) == 1 {
					c.Next()
					return
				}
			}
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
}

// serverAuth resolves :server_id to an active server and checks its api key,
// taken from ?key= or the X-Server-Key header.
func (s *Server) serverAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("server_id")

		srv, err := s.store.FindServer(c.Request.Context(), id)
		if errors.Is(err, store.ErrServerNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or inactive server id"})
			return
		}
		if err != nil {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to validate server"})
			return
		}

		if srv.APIKey != "" {
			key := c.Query("key")
			if key == "" {
				key = c.GetHeader("X-Server-Key")
			}
			if subtle.ConstantTimeCompare([]byte(key), []byte(srv.APIKey)) != 1 {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
				return
			}
		}

		c.Set(serverContextKey, srv)
		c.Next()
	}
}
