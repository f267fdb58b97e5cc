package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccollicutt/cs2log/pkg/parser"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "cs2log.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.SyncServers(context.Background(), []ServerSpec{
		{ID: "alpha", Name: "Alpha", APIKey: "alpha-key"},
		{ID: "bravo"},
	}))
	return s
}

func TestOpen_AppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cs2log.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)

	versions, err := s.SchemaVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"001"}, versions)
	require.NoError(t, s.Close())

	// Reopening must not reapply anything.
	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	versions, err = s.SchemaVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"001"}, versions)
}

func TestRollbackMigration(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "cs2log.db"))
	require.NoError(t, err)
	defer s.Close()

	version, err := s.RollbackMigration(ctx)
	require.NoError(t, err)
	assert.Equal(t, "001", version)

	versions, err := s.SchemaVersions(ctx)
	require.NoError(t, err)
	assert.Empty(t, versions)

	_, err = s.ListServers(ctx)
	assert.Error(t, err, "servers table should be dropped")

	_, err = s.RollbackMigration(ctx)
	assert.Error(t, err)
}

func TestSyncServers(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	servers, err := s.ListServers(ctx)
	require.NoError(t, err)
	require.Len(t, servers, 2)
	assert.Equal(t, "Alpha", servers[0].Name)
	assert.Equal(t, "bravo", servers[1].Name, "name defaults to id")

	require.NoError(t, s.SyncServers(ctx, []ServerSpec{{ID: "bravo", Name: "Bravo", APIKey: "new"}}))

	servers, err = s.ListServers(ctx)
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, "Bravo", servers[0].Name)

	_, err = s.FindServer(ctx, "alpha")
	assert.ErrorIs(t, err, ErrServerNotFound)

	srv, err := s.FindServer(ctx, "bravo")
	require.NoError(t, err)
	assert.Equal(t, "new", srv.APIKey)
	assert.True(t, srv.Active)
}

func TestFindServer_Unknown(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.FindServer(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrServerNotFound)
}

func TestTouchServer(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	at := time.Date(2025, 8, 19, 15, 12, 44, 500, time.UTC)

	require.NoError(t, s.TouchServer(ctx, "alpha", at))

	srv, err := s.FindServer(ctx, "alpha")
	require.NoError(t, err)
	require.NotNil(t, srv.LastSeen)
	assert.True(t, srv.LastSeen.Equal(at))

	assert.ErrorIs(t, s.TouchServer(ctx, "nope", at), ErrServerNotFound)
}

func TestIngestBatch(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	batch := parser.ParseText(`L 08/19/2025 - 18:13:03.123 - World triggered "Round_Start"
L 08/19/2025 - 18:13:04.000 - "Alice<2><[U:1:123]><CT>" purchased "ak47"
garbage line
L 08/19/2025 - 18:13:05.000 - World triggered "Round_End"`)
	first := time.Date(2025, 8, 19, 18, 13, 0, 0, time.UTC)
	require.NoError(t, s.IngestBatch(ctx, "alpha", first, batch))

	second := parser.ParseText(`Game Over: competitive de_mirage score 16:14 after 30 min`)
	require.NoError(t, s.IngestBatch(ctx, "bravo", first.Add(time.Minute), second))

	raw, err := s.ListRawLogs(ctx, LogFilter{})
	require.NoError(t, err)
	require.Len(t, raw, 5)
	assert.Equal(t, "bravo", raw[0].ServerID, "newest first")
	assert.Equal(t, "game_over", raw[0].EventType)
	assert.Equal(t, `L 08/19/2025 - 18:13:05.000 - World triggered "Round_End"`, raw[1].Content)
	assert.Equal(t, "", raw[2].EventType, "failed line has no event type")

	parsed, err := s.ListParsedLogs(ctx, LogFilter{ServerID: "alpha"})
	require.NoError(t, err)
	require.Len(t, parsed, 3)
	assert.Equal(t, "round_event", parsed[0].EventType)
	assert.Equal(t, "08/19/2025 - 18:13:05.000", parsed[0].GameTime)
	assert.JSONEq(t, `{"trigger":"Round_End"}`, string(parsed[0].EventData))
	assert.True(t, parsed[0].CreatedAt.Equal(first))

	purchases, err := s.ListParsedLogs(ctx, LogFilter{EventType: "purchase"})
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	var data map[string]any
	require.NoError(t, json.Unmarshal(purchases[0].EventData, &data))
	assert.Equal(t, "ak47", data["item"])

	failed, err := s.ListFailedLogs(ctx, LogFilter{ServerID: "alpha", EventType: "ignored"})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "garbage line", failed[0].Content)
	assert.Equal(t, "line 3: no matching pattern", failed[0].Error)
}

func TestListLogs_Pagination(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	batch := parser.ParseText("World triggered \"A\"\nWorld triggered \"B\"\nWorld triggered \"C\"")
	require.NoError(t, s.IngestBatch(ctx, "alpha", time.Now(), batch))

	page, err := s.ListRawLogs(ctx, LogFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, `World triggered "C"`, page[0].Content)

	page, err = s.ListRawLogs(ctx, LogFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, `World triggered "A"`, page[0].Content)

	empty, err := s.ListRawLogs(ctx, LogFilter{ServerID: "bravo"})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestEventTypeCounts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.IngestBatch(ctx, "alpha", time.Now(), parser.ParseText(
		"World triggered \"Round_Start\"\n\"A<1><X><CT>\" say \"hi\"\nWorld triggered \"Round_End\"\nbad")))
	require.NoError(t, s.IngestBatch(ctx, "bravo", time.Now(), parser.ParseText(
		"\"A<1><X><CT>\" say \"hi\"\n\"A<1><X><CT>\" say \"again\"\n\"A<1><X><CT>\" say \"and again\"")))

	all, err := s.EventTypeCounts(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []EventTypeCount{
		{Type: "chat", Count: 4},
		{Type: "round_event", Count: 2},
	}, all)

	alpha, err := s.EventTypeCounts(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, []EventTypeCount{
		{Type: "round_event", Count: 2},
		{Type: "chat", Count: 1},
	}, alpha)
}

func TestSplitStatements(t *testing.T) {
	script := `
-- leading comment; with a semicolon
CREATE TABLE a (v TEXT DEFAULT 'x;y');
-- trailing comment
CREATE INDEX i ON a(v);
-- only a comment
`
	got := splitStatements(script)
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "DEFAULT 'x;y'")
	assert.Contains(t, got[1], "CREATE INDEX i")
}

func TestSplitSections(t *testing.T) {
	up, down := splitSections("-- +up\nCREATE TABLE t (id TEXT);\n-- +down\nDROP TABLE t;\n")
	assert.Contains(t, up, "CREATE TABLE t")
	assert.NotContains(t, up, "DROP")
	assert.Contains(t, down, "DROP TABLE t")
}
