package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/ccollicutt/cs2log/pkg/parser"
	"github.com/ccollicutt/cs2log/pkg/store"
	"github.com/ccollicutt/cs2log/pkg/webhook"
)

const (
	logTypeRaw    = "raw"
	logTypeParsed = "parsed"
	logTypeFailed = "failed"
)

// ParseTestRequest is the body of POST /api/parse-test.
type ParseTestRequest struct {
	Logs string `json:"logs" binding:"required"`
}

// IngestResponse is returned by POST /logs/:server_id.
type IngestResponse struct {
	Received    bool   `json:"received"`
	LineCount   int    `json:"line_count"`
	ParsedCount int    `json:"parsed_count"`
	FailedCount int    `json:"failed_count"`
	ServerID    string `json:"server_id"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   s.now().UTC(),
	})
}

func (s *Server) handleParseTest(c *gin.Context) {
	var req ParseTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request body",
			"details": err.Error(),
		})
		return
	}

	lines := parser.SplitLines(req.Logs)
	if len(lines) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no log lines provided"})
		return
	}
	if s.opts.MaxLines > 0 && len(lines) > s.opts.MaxLines {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("too many lines: %d exceeds limit of %d", len(lines), s.opts.MaxLines),
		})
		return
	}

	c.JSON(http.StatusOK, parser.Parse(lines))
}

func (s *Server) handleIngest(c *gin.Context) {
	srv := c.MustGet(serverContextKey).(*store.Server)

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		if isTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	lines := parser.SplitLines(string(body))
	if s.opts.MaxLines > 0 && len(lines) > s.opts.MaxLines {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("too many lines: %d exceeds limit of %d", len(lines), s.opts.MaxLines),
		})
		return
	}

	ctx := c.Request.Context()
	receivedAt := s.now().UTC()
	batch := parser.Parse(lines)

	if err := s.store.IngestBatch(ctx, srv.ID, receivedAt, batch); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store logs"})
		return
	}
	if err := s.store.TouchServer(ctx, srv.ID, receivedAt); err != nil {
		s.logger.Warn("updating last seen", zap.String("server_id", srv.ID), zap.Error(err))
	}
	s.eventTypes.Flush()

	if s.notifier != nil && batch.TotalLines > 0 {
		s.notifier.Notify(ctx, webhook.NewNotification(srv.ID, receivedAt, batch))
	}

	c.JSON(http.StatusOK, IngestResponse{
		Received:    true,
		LineCount:   batch.TotalLines,
		ParsedCount: batch.ParsedCount,
		FailedCount: batch.FailedCount,
		ServerID:    srv.ID,
	})
}

func (s *Server) handleListLogs(c *gin.Context) {
	logType := c.DefaultQuery("type", logTypeRaw)

	limit, err := queryInt(c, "limit", store.DefaultLimit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filter := store.LogFilter{
		ServerID:  c.Query("server_id"),
		EventType: c.Query("event_type"),
		Limit:     limit,
		Offset:    offset,
	}

	ctx := c.Request.Context()
	var entries []store.LogEntry
	switch logType {
	case logTypeRaw:
		entries, err = s.store.ListRawLogs(ctx, filter)
	case logTypeParsed:
		entries, err = s.store.ListParsedLogs(ctx, filter)
	case logTypeFailed:
		entries, err = s.store.ListFailedLogs(ctx, filter)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid type %q: must be raw, parsed or failed", logType)})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch logs"})
		return
	}

	if c.Query("download") == "true" {
		filename := fmt.Sprintf("cs2-logs-%s.txt", s.now().UTC().Format("20060102-150405"))
		c.Header("Content-Disposition", "attachment; filename="+filename)
		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(formatDownload(entries)))
		return
	}

	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleEventTypes(c *gin.Context) {
	serverID := c.Query("server_id")
	key := "event-types:" + serverID

	if cached, ok := s.eventTypes.Get(key); ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	counts, err := s.store.EventTypeCounts(c.Request.Context(), serverID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count event types"})
		return
	}
	s.eventTypes.Set(key, counts, cache.DefaultExpiration)

	c.JSON(http.StatusOK, counts)
}

func (s *Server) handleListServers(c *gin.Context) {
	servers, err := s.store.ListServers(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list servers"})
		return
	}
	c.JSON(http.StatusOK, servers)
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", name, raw)
	}
	return n, nil
}

// formatDownload renders entries as "[created_at] server_id [event_type]: content" lines.
func formatDownload(entries []store.LogEntry) string {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString("[")
		b.WriteString(e.CreatedAt.UTC().Format(time.RFC3339))
		b.WriteString("] ")
		b.WriteString(e.ServerID)
		if e.EventType != "" {
			b.WriteString(" [")
			b.WriteString(e.EventType)
			b.WriteString("]")
		}
		b.WriteString(": ")
		b.WriteString(e.Content)
		b.WriteString("\n")
	}
	return b.String()
}
