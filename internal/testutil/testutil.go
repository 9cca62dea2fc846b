// Package testutil provides shared test helpers and tracking-data fixtures.
//
// This package centralises common test helpers to reduce duplication across
// test files.
package testutil

import (
	"math"
	"testing"

	"github.com/amanda-brooke/trackmate7-pipeline/internal/trackmate"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertInDelta checks that got is within delta of want.
func AssertInDelta(t *testing.T, got, want, delta float64) {
	t.Helper()
	if math.Abs(got-want) > delta {
		t.Errorf("got %g, want %g (±%g)", got, want, delta)
	}
}

// Spot builds a spot fixture with sensible defaults for the fields the radial
// engine does not read.
func Spot(fileID string, spotID, trackID int64, frame int, x, y float64) trackmate.Spot {
	return trackmate.Spot{
		SpotID:  spotID,
		FileID:  fileID,
		TrackID: trackID,
		Frame:   frame,
		X:       x,
		Y:       y,
		Group:   trackmate.GroupWildtype,
	}
}

// Edge builds an edge fixture joining two spot IDs on one track.
func Edge(fileID string, sourceID, targetID, trackID int64) trackmate.Edge {
	return trackmate.Edge{
		SourceID: sourceID,
		TargetID: targetID,
		FileID:   fileID,
		TrackID:  trackID,
		Group:    trackmate.GroupWildtype,
	}
}
