package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanda-brooke/trackmate7-pipeline/internal/radial"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/testutil"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/trackmate"
)

func TestMigrateUpAndVersion(t *testing.T) {
	database := newTestDB(t)

	version, dirty, err := database.MigrateVersion(migrationsDirForTest)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)
}

func TestInsertAndListRuns(t *testing.T) {
	database := newTestDB(t)

	started := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	run := Run{
		RunID:      "run-1",
		Workflow:   "wildtype",
		BasePath:   "/data/experiment7",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Minute),
		Files:      3,
		Failures:   1,
	}
	require.NoError(t, database.InsertRun(run))

	runs, err := database.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.Equal(t, "wildtype", runs[0].Workflow)
	assert.Equal(t, 3, runs[0].Files)
	assert.True(t, runs[0].StartedAt.Equal(started))
}

func TestInsertDataset(t *testing.T) {
	database := newTestDB(t)
	require.NoError(t, database.InsertRun(Run{RunID: "run-1", Workflow: "wildtype", BasePath: "x",
		StartedAt: time.Now(), FinishedAt: time.Now()}))

	ds := &trackmate.Dataset{
		Spots: []trackmate.Spot{
			testutil.Spot("c1_offset_27", 1, 0, 0, 1.5, 2.5),
		},
		Edges: []trackmate.Edge{
			testutil.Edge("c1_offset_27", 1, 2, 0),
		},
		Tracks: []trackmate.Track{
			{TrackID: 0, FileID: "c1_offset_27", NumberSpots: 2, DurationHours: 0.5, Group: trackmate.GroupWildtype},
		},
	}
	require.NoError(t, database.InsertDataset("run-1", ds))

	var spots, edges, tracks int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM spots WHERE run_id = 'run-1'`).Scan(&spots))
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM edges WHERE run_id = 'run-1'`).Scan(&edges))
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM tracks WHERE run_id = 'run-1'`).Scan(&tracks))
	assert.Equal(t, 1, spots)
	assert.Equal(t, 1, edges)
	assert.Equal(t, 1, tracks)
}

func testAnalysis() *radial.Analysis {
	p := 0.25
	decorated := radial.DecoratedEdge{
		MoveDX:         1,
		MoveDY:         0,
		RadialDX:       2,
		RadialDY:       0,
		RadialVelocity: 1,
		Speed:          1,
	}
	decorated.FileID = "c1"
	decorated.TrackID = 5
	decorated.SourceID = 1
	decorated.TargetID = 2

	return &radial.Analysis{
		Decorated: []radial.DecoratedEdge{decorated},
		ByFile: map[string]radial.PersistenceResult{
			"c1": {SumRadialVelocity: 1, SumSpeed: 4, Persistence: &p, Edges: 1},
		},
		ByTrack: map[radial.TrackKey]radial.PersistenceResult{
			{FileID: "c1", TrackID: 5}: {SumRadialVelocity: 1, SumSpeed: 4, Persistence: &p, Edges: 1},
		},
	}
}

func TestInsertAndQueryAnalysis(t *testing.T) {
	database := newTestDB(t)
	require.NoError(t, database.InsertRun(Run{RunID: "run-1", Workflow: "wildtype", BasePath: "x",
		StartedAt: time.Now(), FinishedAt: time.Now()}))
	require.NoError(t, database.InsertAnalysis("run-1", testAnalysis()))

	byFile, err := database.PersistenceByFile("run-1")
	require.NoError(t, err)
	require.Len(t, byFile, 1)
	assert.Equal(t, "c1", byFile[0].FileID)
	require.NotNil(t, byFile[0].Persistence)
	assert.InDelta(t, 0.25, *byFile[0].Persistence, 1e-12)

	byTrack, err := database.PersistenceByTrack("run-1", "c1")
	require.NoError(t, err)
	require.Len(t, byTrack, 1)
	assert.Equal(t, int64(5), byTrack[0].TrackID)

	edges, err := database.RadialEdges("run-1", "c1", 10)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.InDelta(t, 1.0, edges[0].RadialVelocity, 1e-12)
	assert.False(t, edges[0].Degenerate)
}

func TestInsertAnalysisNullPersistence(t *testing.T) {
	database := newTestDB(t)
	require.NoError(t, database.InsertRun(Run{RunID: "run-1", Workflow: "wildtype", BasePath: "x",
		StartedAt: time.Now(), FinishedAt: time.Now()}))

	analysis := &radial.Analysis{
		ByFile: map[string]radial.PersistenceResult{
			"still": {SumRadialVelocity: 0, SumSpeed: 0, Persistence: nil, Edges: 2},
		},
	}
	require.NoError(t, database.InsertAnalysis("run-1", analysis))

	byFile, err := database.PersistenceByFile("run-1")
	require.NoError(t, err)
	require.Len(t, byFile, 1)
	assert.Nil(t, byFile[0].Persistence, "missing persistence must round-trip as NULL")
}

func TestPersistenceByFileEmptyRun(t *testing.T) {
	database := newTestDB(t)

	results, err := database.PersistenceByFile("no-such-run")
	require.NoError(t, err)
	assert.Empty(t, results)
}
