package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amanda-brooke/trackmate7-pipeline/internal/config"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/fsutil"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/monitoring"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/testutil"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/timeutil"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/trackmate"
)

func init() {
	monitoring.Quiet()
}

const spotsCSV = `LABEL,ID,TRACK_ID,POSITION_X,POSITION_Y,POSITION_T,FRAME
l,i,t,x,y,t,f
,,,,,,
ID1,1,0,0.0,0.0,0,0
ID2,2,1,2.0,0.0,0,0
ID3,3,0,0.0,1.0,1800,1
ID4,4,1,2.0,1.0,1800,1
`

const edgesCSV = `LABEL,SPOT_SOURCE_ID,SPOT_TARGET_ID,TRACK_ID,EDGE_TIME,SPEED
l,s,t,tr,et,sp
,,,,,
e1,1,3,0,900,0.001
e2,2,4,1,900,0.001
`

const tracksCSV = `LABEL,TRACK_ID,NUMBER_SPOTS,TRACK_START,TRACK_STOP,TRACK_DURATION
l,t,n,s,e,d
,,,,,
Track_0,0,2,0,1800,1800
Track_1,1,2,0,1800,1800
`

// badEdgesCSV spans two frames, which must fail that file's analysis.
const badEdgesCSV = `LABEL,SPOT_SOURCE_ID,SPOT_TARGET_ID,TRACK_ID,EDGE_TIME,SPEED
l,s,t,tr,et,sp
,,,,,
e1,1,3,0,900,0.001
`

const badSpotsCSV = `LABEL,ID,TRACK_ID,POSITION_X,POSITION_Y,POSITION_T,FRAME
l,i,t,x,y,t,f
,,,,,,
ID1,1,0,0.0,0.0,0,0
ID2,2,1,5.0,5.0,0,0
ID3,3,0,0.0,1.0,3600,2
`

func wildtypeFixture(t *testing.T) *fsutil.MemoryFileSystem {
	t.Helper()
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("base/offset_27/spots/c1_spots.csv", []byte(spotsCSV))
	fsys.WriteFile("base/offset_27/edges/c1_edges.csv", []byte(edgesCSV))
	fsys.WriteFile("base/offset_27/tracks/c1_tracks.csv", []byte(tracksCSV))
	fsys.WriteFile("base/offset_29/spots/c1_spots.csv", []byte(spotsCSV))
	fsys.WriteFile("base/offset_29/edges/c1_edges.csv", []byte(edgesCSV))
	fsys.WriteFile("base/offset_29/tracks/c1_tracks.csv", []byte(tracksCSV))
	return fsys
}

func newTestRunner(fsys fsutil.FileSystem) *Runner {
	clock := timeutil.NewFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	return NewRunner(fsys, clock, config.EmptyAnalysisConfig())
}

func TestLoadWildtypeCombinesReplicates(t *testing.T) {
	runner := newTestRunner(wildtypeFixture(t))

	ds, err := runner.LoadWildtype("base")
	require.NoError(t, err)

	// Same base CSV name, distinct replicates: two File_IDs.
	assert.ElementsMatch(t, []string{"c1_offset_27", "c1_offset_29"}, ds.FileIDs())
	assert.Len(t, ds.Spots, 8)
	assert.Len(t, ds.Edges, 4)
	assert.Len(t, ds.Tracks, 4)

	// Offsets applied per replicate.
	for _, s := range ds.Spots {
		switch s.FileID {
		case "c1_offset_27":
			assert.GreaterOrEqual(t, s.TimeHours, 27.0)
			assert.Less(t, s.TimeHours, 28.0)
		case "c1_offset_29":
			assert.GreaterOrEqual(t, s.TimeHours, 29.0)
		}
	}
}

func TestLoadWildtypeNoOffsets(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("base/unrelated/file.csv", []byte("x"))

	_, err := newTestRunner(fsys).LoadWildtype("base")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no offset folders")
}

func TestLoadTreatmentControl(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	fsys.WriteFile("base/offset_27/treatment/spots/c1_spots.csv", []byte(spotsCSV))
	fsys.WriteFile("base/offset_27/treatment/edges/c1_edges.csv", []byte(edgesCSV))
	fsys.WriteFile("base/offset_27/control/spots/c1_spots.csv", []byte(spotsCSV))
	fsys.WriteFile("base/offset_27/control/edges/c1_edges.csv", []byte(edgesCSV))

	ds, err := newTestRunner(fsys).LoadTreatmentControl("base")
	require.NoError(t, err)

	assert.ElementsMatch(t,
		[]string{"c1_offset_27_treatment", "c1_offset_27_control"}, ds.FileIDs())

	groups := map[trackmate.Group]bool{}
	for _, s := range ds.Spots {
		groups[s.Group] = true
	}
	assert.True(t, groups[trackmate.GroupTreatment])
	assert.True(t, groups[trackmate.GroupControl])
}

func TestAnalyzeBatchIsolatesFailures(t *testing.T) {
	// Two files: one clean, one with a frame gap. The bad file fails, the
	// clean one still produces a result.
	ds := &trackmate.Dataset{
		Spots: []trackmate.Spot{
			testutil.Spot("good", 1, 0, 0, 0, 0),
			testutil.Spot("good", 2, 1, 0, 2, 0),
			testutil.Spot("good", 3, 0, 1, 0, 1),
			testutil.Spot("good", 4, 1, 1, 2, 1),
			testutil.Spot("bad", 1, 0, 0, 0, 0),
			testutil.Spot("bad", 2, 1, 0, 5, 5),
			testutil.Spot("bad", 3, 0, 2, 0, 1), // frame 2: gap
		},
		Edges: []trackmate.Edge{
			testutil.Edge("good", 1, 3, 0),
			testutil.Edge("good", 2, 4, 1),
			testutil.Edge("bad", 1, 3, 0),
		},
	}

	batch := newTestRunner(fsutil.NewMemoryFileSystem()).AnalyzeBatch(context.Background(), ds)

	require.NotEmpty(t, batch.RunID)
	require.Contains(t, batch.Results, "good")
	require.Contains(t, batch.Failures, "bad")
	assert.NotContains(t, batch.Results, "bad")
	assert.NotContains(t, batch.Failures, "good")

	good := batch.Results["good"]
	assert.NotNil(t, good.ByFile["good"].Persistence)
}

func TestRunWildtypeEndToEnd(t *testing.T) {
	fsys := wildtypeFixture(t)
	// Add a replicate whose edges span non-adjacent frames.
	fsys.WriteFile("base/offset_31/spots/c9_spots.csv", []byte(badSpotsCSV))
	fsys.WriteFile("base/offset_31/edges/c9_edges.csv", []byte(badEdgesCSV))
	fsys.WriteFile("base/offset_31/tracks/c9_tracks.csv", []byte(tracksCSV))

	ds, batch, err := newTestRunner(fsys).Run(context.Background(), WorkflowWildtype, "base")
	require.NoError(t, err)

	assert.Equal(t, WorkflowWildtype, batch.Workflow)
	assert.Equal(t, "base", batch.BasePath)
	assert.Len(t, ds.FileIDs(), 3)
	assert.Len(t, batch.Results, 2)
	require.Contains(t, batch.Failures, "c9_offset_31")

	// The clean replicates carry valid persistence values.
	for fileID, analysis := range batch.Results {
		result, ok := analysis.ByFile[fileID]
		require.True(t, ok)
		require.NotNil(t, result.Persistence)
		assert.InDelta(t, 0.0, *result.Persistence, 1e-9,
			"fixture motion is purely tangential")
	}
}

func TestRunUnknownWorkflow(t *testing.T) {
	_, _, err := newTestRunner(fsutil.NewMemoryFileSystem()).Run(context.Background(), "mystery", "base")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown workflow")
}
