package radial

import (
	"gonum.org/v1/gonum/floats"
)

// TrackKey identifies one track of one imaging file.
type TrackKey struct {
	FileID  string
	TrackID int64
}

// PersistenceResult is the radial persistence aggregate for one group of
// decorated edges: the ratio of summed radial velocity to summed speed.
// The ratio-of-sums form is used rather than a mean of per-edge ratios; it
// avoids averaging ratios with near-zero denominators.
type PersistenceResult struct {
	SumRadialVelocity float64
	SumSpeed          float64

	// Persistence is nil when SumSpeed is zero (a group with no net
	// motion): missing, never zero, never infinite.
	Persistence *float64

	// Edges is the number of qualifying edges in the group.
	Edges int
}

// qualifies reports whether an edge contributes to radial aggregates.
// Degenerate radial references are excluded from both sums so the ratio stays
// over a consistent edge set.
func qualifies(d DecoratedEdge) bool {
	return !d.DegenerateRadial
}

// AggregateByFile reduces decorated edges to one PersistenceResult per
// File_ID.
func AggregateByFile(decorated []DecoratedEdge) map[string]PersistenceResult {
	rv := make(map[string][]float64)
	sp := make(map[string][]float64)
	for _, d := range decorated {
		if !qualifies(d) {
			continue
		}
		rv[d.FileID] = append(rv[d.FileID], d.RadialVelocity)
		sp[d.FileID] = append(sp[d.FileID], d.Speed)
	}

	results := make(map[string]PersistenceResult, len(rv))
	for fileID, velocities := range rv {
		results[fileID] = reduce(velocities, sp[fileID])
	}
	return results
}

// AggregateByTrack reduces decorated edges to one PersistenceResult per
// (File_ID, Track_ID).
func AggregateByTrack(decorated []DecoratedEdge) map[TrackKey]PersistenceResult {
	rv := make(map[TrackKey][]float64)
	sp := make(map[TrackKey][]float64)
	for _, d := range decorated {
		if !qualifies(d) {
			continue
		}
		key := TrackKey{FileID: d.FileID, TrackID: d.TrackID}
		rv[key] = append(rv[key], d.RadialVelocity)
		sp[key] = append(sp[key], d.Speed)
	}

	results := make(map[TrackKey]PersistenceResult, len(rv))
	for key, velocities := range rv {
		results[key] = reduce(velocities, sp[key])
	}
	return results
}

// reduce sums one group's radial velocities and speeds and forms the ratio.
func reduce(radialVelocities, speeds []float64) PersistenceResult {
	result := PersistenceResult{
		SumRadialVelocity: floats.Sum(radialVelocities),
		SumSpeed:          floats.Sum(speeds),
		Edges:             len(radialVelocities),
	}
	if result.SumSpeed > 0 {
		p := result.SumRadialVelocity / result.SumSpeed
		result.Persistence = &p
	}
	return result
}
