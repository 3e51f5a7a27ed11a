package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/spv-planning/pkg/db"
)

var _ db.RosterStore = (*Snapshot)(nil)

const sampleSnapshot = `{
  "firefighters": [
    {"id": 2, "firstName": "Bruno", "lastName": "Martin", "grade": "SGT", "qualifications": ["SUAP"]},
    {"id": 1, "firstName": "Alice", "lastName": "Durand", "grade": "CPL", "qualifications": ["COD0", "B"], "preferredSlots": [3]},
    {"id": 3, "firstName": "Chloe", "lastName": "Petit", "grade": "SAP", "active": false}
  ],
  "availability": [
    {"firefighterId": 1, "date": "2025-02-28", "slot": 1, "available": true},
    {"firefighterId": 1, "date": "2025-03-01", "slot": 1, "available": true},
    {"firefighterId": 2, "date": "2025-03-31", "slot": 3, "available": true},
    {"firefighterId": 2, "date": "2025-04-01", "slot": 3, "available": true}
  ]
}`

func writeSnapshot(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// mockRosterWriter records the seeded rows
type mockRosterWriter struct {
	firefighters    []db.Firefighter
	availability    []db.Availability
	firefightersErr error
}

func (m *mockRosterWriter) UpsertFirefighters(ctx context.Context, firefighters []db.Firefighter) error {
	if m.firefightersErr != nil {
		return m.firefightersErr
	}
	m.firefighters = append(m.firefighters, firefighters...)
	return nil
}

func (m *mockRosterWriter) UpsertAvailability(ctx context.Context, availability []db.Availability) error {
	m.availability = append(m.availability, availability...)
	return nil
}

func TestLoad_ActiveByDefault(t *testing.T) {
	snap, err := Load(writeSnapshot(t, sampleSnapshot))
	require.NoError(t, err)

	firefighters, err := snap.ListFirefighters(context.Background())
	require.NoError(t, err)

	require.Len(t, firefighters, 2)
	assert.Equal(t, int64(1), firefighters[0].ID)
	assert.Equal(t, []int{3}, firefighters[0].PreferredSlots)
	assert.True(t, firefighters[0].Active)
	assert.Equal(t, int64(2), firefighters[1].ID)
}

func TestListAvailability_InclusivePeriod(t *testing.T) {
	snap, err := Load(writeSnapshot(t, sampleSnapshot))
	require.NoError(t, err)

	availability, err := snap.ListAvailability(context.Background(), "2025-03-01", "2025-03-31")
	require.NoError(t, err)

	require.Len(t, availability, 2)
	assert.Equal(t, "2025-03-01", availability[0].Date)
	assert.Equal(t, "2025-03-31", availability[1].Date)
}

func TestLoad_DuplicateID(t *testing.T) {
	_, err := Load(writeSnapshot(t, `{"firefighters": [{"id": 1}, {"id": 1}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate firefighter id 1")
}

func TestLoad_InvalidJSON(t *testing.T) {
	_, err := Load(writeSnapshot(t, `{"firefighters": [`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse snapshot file")
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/snapshot.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read snapshot file")
}

func TestSeed(t *testing.T) {
	snap, err := Load(writeSnapshot(t, sampleSnapshot))
	require.NoError(t, err)

	writer := &mockRosterWriter{}
	require.NoError(t, snap.Seed(context.Background(), writer))

	assert.Len(t, writer.firefighters, 3)
	assert.False(t, writer.firefighters[2].Active)
	assert.Len(t, writer.availability, 4)
}

func TestSeed_StopsOnError(t *testing.T) {
	snap, err := Load(writeSnapshot(t, sampleSnapshot))
	require.NoError(t, err)

	writer := &mockRosterWriter{firefightersErr: assert.AnError}
	err = snap.Seed(context.Background(), writer)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, writer.availability)
}
