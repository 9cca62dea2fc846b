package radial

import (
	"github.com/amanda-brooke/trackmate7-pipeline/internal/config"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/monitoring"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/trackmate"
)

// Engine runs the radial motion analysis for one imaging file's cleaned spot
// and edge tables. It holds no state between calls: each Analyze invocation
// is a pure function of its inputs, so one Engine can be shared across
// concurrent per-file analyses.
type Engine struct {
	signed  bool
	epsilon float64
}

// NewEngine builds an Engine from the analysis configuration.
func NewEngine(cfg *config.AnalysisConfig) *Engine {
	if cfg == nil {
		cfg = config.EmptyAnalysisConfig()
	}
	return &Engine{
		signed:  cfg.GetSignedPersistence(),
		epsilon: cfg.GetEpsilon(),
	}
}

// Analysis is the full output of one Analyze call.
type Analysis struct {
	Decorated []DecoratedEdge
	ByFile    map[string]PersistenceResult
	ByTrack   map[TrackKey]PersistenceResult
	Stats     DecorationStats
}

// Analyze validates the edge table against the spot table, computes per-frame
// centroids, decorates every edge with its radial decomposition, and
// aggregates radial persistence at file and track granularity.
//
// Structural inconsistencies (orphan endpoints, cross-track or cross-file
// edges, non-adjacent frames) return a *ConsistencyError. Geometric
// degeneracies are absorbed locally and reported in Analysis.Stats.
func (e *Engine) Analyze(spots []trackmate.Spot, edges []trackmate.Edge) (*Analysis, error) {
	resolved, err := resolveEdges(spots, edges)
	if err != nil {
		return nil, err
	}

	centroids := Centroids(spots)
	decorated, stats := DecorateEdges(resolved, centroids, DecorateOptions{
		Signed:  e.signed,
		Epsilon: e.epsilon,
	})
	if stats.DroppedMissingCentroid > 0 {
		monitoring.Logf("radial: dropped %d edge(s) with no source-frame centroid", stats.DroppedMissingCentroid)
	}
	if stats.DegenerateRadial > 0 {
		monitoring.Logf("radial: %d edge(s) with zero-length radial reference excluded from aggregates", stats.DegenerateRadial)
	}

	return &Analysis{
		Decorated: decorated,
		ByFile:    AggregateByFile(decorated),
		ByTrack:   AggregateByTrack(decorated),
		Stats:     stats,
	}, nil
}

type spotKey struct {
	fileID string
	spotID int64
}

// resolveEdges joins each edge's endpoints against the spot table and checks
// the structural invariants: both endpoints exist in the edge's file, both
// belong to the edge's track, and the endpoints are exactly one frame apart.
func resolveEdges(spots []trackmate.Spot, edges []trackmate.Edge) ([]ResolvedEdge, error) {
	index := make(map[spotKey]trackmate.Spot, len(spots))
	for _, s := range spots {
		index[spotKey{fileID: s.FileID, spotID: s.SpotID}] = s
	}

	resolved := make([]ResolvedEdge, 0, len(edges))
	for _, edge := range edges {
		source, ok := index[spotKey{fileID: edge.FileID, spotID: edge.SourceID}]
		if !ok {
			return nil, consistencyErrorf(edge.FileID, "edge source spot %d not found", edge.SourceID)
		}
		target, ok := index[spotKey{fileID: edge.FileID, spotID: edge.TargetID}]
		if !ok {
			return nil, consistencyErrorf(edge.FileID, "edge target spot %d not found", edge.TargetID)
		}
		if source.TrackID != edge.TrackID || target.TrackID != edge.TrackID {
			return nil, consistencyErrorf(edge.FileID,
				"edge %d→%d on track %d references spots of tracks %d and %d",
				edge.SourceID, edge.TargetID, edge.TrackID, source.TrackID, target.TrackID)
		}
		if target.Frame-source.Frame != 1 {
			return nil, consistencyErrorf(edge.FileID,
				"edge %d→%d spans frames %d→%d, expected adjacent frames",
				edge.SourceID, edge.TargetID, source.Frame, target.Frame)
		}
		resolved = append(resolved, ResolvedEdge{Edge: edge, Source: source, Target: target})
	}
	return resolved, nil
}
