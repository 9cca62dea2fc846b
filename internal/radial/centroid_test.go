package radial

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/amanda-brooke/trackmate7-pipeline/internal/testutil"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/trackmate"
)

func TestCentroidsPerFrameMean(t *testing.T) {
	spots := []trackmate.Spot{
		testutil.Spot("c1", 1, 0, 0, 0, 0),
		testutil.Spot("c1", 2, 1, 0, 2, 0),
		testutil.Spot("c1", 3, 0, 1, 0, 1),
		testutil.Spot("c1", 4, 1, 1, 2, 1),
	}

	got := Centroids(spots)
	want := map[FrameKey]Centroid{
		{FileID: "c1", Frame: 0}: {X: 1, Y: 0},
		{FileID: "c1", Frame: 1}: {X: 1, Y: 0.5},
	}

	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Centroids mismatch (-want +got):\n%s", diff)
	}
}

func TestCentroidsSeparatePerFile(t *testing.T) {
	spots := []trackmate.Spot{
		testutil.Spot("c1", 1, 0, 0, 10, 10),
		testutil.Spot("c2", 1, 0, 0, -10, -10),
	}

	got := Centroids(spots)
	if len(got) != 2 {
		t.Fatalf("got %d centroids, want 2", len(got))
	}
	if c := got[FrameKey{FileID: "c1", Frame: 0}]; c.X != 10 || c.Y != 10 {
		t.Errorf("c1 centroid = %+v, want (10,10)", c)
	}
	if c := got[FrameKey{FileID: "c2", Frame: 0}]; c.X != -10 || c.Y != -10 {
		t.Errorf("c2 centroid = %+v, want (-10,-10)", c)
	}
}

func TestCentroidsAbsentForEmptyFrames(t *testing.T) {
	spots := []trackmate.Spot{
		testutil.Spot("c1", 1, 0, 0, 1, 1),
		testutil.Spot("c1", 2, 0, 2, 3, 3), // frame 1 has no spots
	}

	got := Centroids(spots)
	if _, ok := got[FrameKey{FileID: "c1", Frame: 1}]; ok {
		t.Error("frame with zero spots must be absent from the centroid map")
	}
	if len(got) != 2 {
		t.Errorf("got %d centroids, want 2", len(got))
	}
}

func TestCentroidsOrderIndependent(t *testing.T) {
	spots := []trackmate.Spot{
		testutil.Spot("c1", 1, 0, 0, 0.1, 0.7),
		testutil.Spot("c1", 2, 1, 0, 2.3, -1.2),
		testutil.Spot("c1", 3, 2, 0, 5.5, 0.4),
	}
	reversed := []trackmate.Spot{spots[2], spots[1], spots[0]}

	if diff := cmp.Diff(Centroids(spots), Centroids(reversed), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("centroids differ under row permutation:\n%s", diff)
	}
}
