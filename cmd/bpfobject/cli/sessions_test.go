package cli_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/go-bpfobject/events"
	"github.com/frobware/go-bpfobject/recorder/sqlite"
)

// seedDB records one session with two samples and returns the database
// path and the session ID.
func seedDB(t *testing.T) (string, string) {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "events.db")

	rec, err := sqlite.New(ctx, path, nil)
	require.NoError(t, err)
	defer rec.Close()

	s, err := rec.StartSession(ctx, "events", "")
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, events.Sample{CPU: 1, Raw: []byte{0xca, 0xfe}}))
	require.NoError(t, s.Record(ctx, events.Sample{CPU: 2, Raw: []byte{0x01}}))
	require.NoError(t, s.RecordLost(ctx, 1, 4))
	return path, s.ID()
}

func TestSessionsList(t *testing.T) {
	db, id := seedDB(t)

	out, err := run(t, "sessions", "list", "--db", db)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	fields := strings.Fields(lines[1])
	require.Len(t, fields, 6)
	assert.Equal(t, []string{id, "events", "-", "2", "4"}, fields[:5])

	// list is the default subcommand.
	out2, err := run(t, "sessions", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, out, out2)
}

func TestSessionsList_JSON(t *testing.T) {
	db, id := seedDB(t)

	out, err := run(t, "sessions", "list", "--db", db, "-o", "json")
	require.NoError(t, err)

	var sessions []sqlite.SessionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, id, sessions[0].ID)
	assert.Equal(t, uint64(4), sessions[0].Lost)
}

func TestSessionsList_Empty(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")

	out, err := run(t, "sessions", "list", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No sessions found\n", out)

	out, err = run(t, "sessions", "list", "--db", db, "-o", "json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestSessionsShow(t *testing.T) {
	db, id := seedDB(t)

	out, err := run(t, "sessions", "show", "--db", db, id)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1", strings.Fields(lines[0])[1])
	assert.True(t, strings.HasSuffix(lines[0], " cafe"))
	assert.True(t, strings.HasSuffix(lines[1], " 01"))

	_, err = run(t, "sessions", "show", "--db", db, "no-such-session")
	assert.ErrorIs(t, err, sqlite.ErrSessionNotFound)
}

func TestSessionsDelete(t *testing.T) {
	db, id := seedDB(t)

	out, err := run(t, "sessions", "delete", "--db", db, id)
	require.NoError(t, err)
	assert.Equal(t, "Deleted session "+id+"\n", out)

	out, err = run(t, "sessions", "list", "--db", db)
	require.NoError(t, err)
	assert.Equal(t, "No sessions found\n", out)

	_, err = run(t, "sessions", "delete", "--db", db, id)
	assert.ErrorIs(t, err, sqlite.ErrSessionNotFound)
}

func TestSessionsList_JSONPath(t *testing.T) {
	db, id := seedDB(t)

	out, err := run(t, "sessions", "list", "--db", db, "-o", "jsonpath={[0].id}")
	require.NoError(t, err)
	assert.Equal(t, id+"\n", out)

	_, err = run(t, "sessions", "list", "--db", db, "-o", "jsonpath={[0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid jsonpath expression")
}
