package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evidencecheck/attest/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "attest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleAssessment(id string) *models.TrustAssessment {
	return &models.TrustAssessment{
		ID:        id,
		ProjectID: "mangrove-delta-07",
		Score:     44,
		Flags:     []string{models.FlagNoGPS, models.FlagNoExifTime, models.FlagModelUnavailable},
		Verdict:   models.VerdictFake,
		Media: []models.MediaItem{{
			Digest:         "abc123",
			PerceptualHash: "00000000000000ff",
			Stamped:        true,
			StorageKey:     "evidence/x.jpg",
			StorageURL:     "https://store.test/evidence/x.jpg",
		}},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestAssessmentRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := sampleAssessment("a-1")
	require.NoError(t, store.SaveAssessment(ctx, a))

	got, err := store.GetAssessment(ctx, "a-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, a.Score, got.Score)
	assert.Equal(t, a.Flags, got.Flags)
	assert.Equal(t, a.Verdict, got.Verdict)
	assert.Nil(t, got.Model)
	require.Len(t, got.Media, 1)
	assert.Equal(t, a.Media[0].PerceptualHash, got.Media[0].PerceptualHash)
}

func TestAssessmentWithModelAnalysis(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := sampleAssessment("a-2")
	a.Model = &models.ModelAnalysis{Verdict: models.VerdictAuthentic, Confidence: 95, Reasoning: "ok"}
	require.NoError(t, store.SaveAssessment(ctx, a))

	got, err := store.GetAssessment(ctx, "a-2")
	require.NoError(t, err)
	require.NotNil(t, got.Model)
	assert.Equal(t, 95, got.Model.Confidence)
}

func TestGetAssessmentNotFound(t *testing.T) {
	store := newTestStore(t)
	got, err := store.GetAssessment(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListAssessmentsByProject(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		a := sampleAssessment(fmt.Sprintf("a-%d", i))
		require.NoError(t, store.SaveAssessment(ctx, a))
	}
	other := sampleAssessment("b-0")
	other.ProjectID = "other-project"
	require.NoError(t, store.SaveAssessment(ctx, other))

	results, err := store.ListAssessments(ctx, "mangrove-delta-07", 10, 0)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	all, err := store.ListAssessments(ctx, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestProjectRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := &models.ProjectRecord{
		ID:   "mangrove-delta-07",
		Name: "Mangrove Delta Restoration",
		Geofence: models.Polygon{
			{Lon: 36.80, Lat: -1.30}, {Lon: 36.85, Lat: -1.30},
			{Lon: 36.85, Lat: -1.25}, {Lon: 36.80, Lat: -1.25},
		},
		LocationHint: "tidal flats east of the village",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.UpsertProject(ctx, p))

	got, err := store.GetProject(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Geofence, got.Geofence)
	assert.Equal(t, p.LocationHint, got.LocationHint)

	// Upsert replaces the geofence.
	p.Geofence = nil
	p.Name = "Renamed"
	require.NoError(t, store.UpsertProject(ctx, p))
	got, err = store.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Empty(t, got.Geofence)
}

func TestPriorHashWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var hashes []string
	for i := 0; i < 15; i++ {
		hashes = append(hashes, fmt.Sprintf("%016x", i))
	}
	require.NoError(t, store.AppendPriorHashes(ctx, "p1", hashes))

	got, err := store.PriorHashes(ctx, "p1", 10)
	require.NoError(t, err)
	require.Len(t, got, 10)
	// Most recent first.
	assert.Equal(t, fmt.Sprintf("%016x", 14), got[0])

	none, err := store.PriorHashes(ctx, "unknown", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
