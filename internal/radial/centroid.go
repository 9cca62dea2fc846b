// Package radial implements the radial motion analysis engine: per-frame
// population centroids, decomposition of tracked movements into radial and
// non-radial components, and the radial persistence statistic.
package radial

import (
	"gonum.org/v1/gonum/stat"

	"github.com/amanda-brooke/trackmate7-pipeline/internal/trackmate"
)

// FrameKey identifies one frame of one imaging file.
type FrameKey struct {
	FileID string
	Frame  int
}

// Centroid is the mean position of all spots in one frame of one file. It is
// the moving reference origin for radial direction: recomputed per frame so
// the radial reference tracks the population as it drifts and spreads.
type Centroid struct {
	X float64
	Y float64
}

// Centroids groups spots by (FileID, Frame) and returns the arithmetic mean
// position per group. Frames with zero spots are simply absent from the map;
// callers must treat a missing entry as "no centroid", never as the origin.
// The result is independent of input row order.
func Centroids(spots []trackmate.Spot) map[FrameKey]Centroid {
	xs := make(map[FrameKey][]float64)
	ys := make(map[FrameKey][]float64)
	for _, s := range spots {
		key := FrameKey{FileID: s.FileID, Frame: s.Frame}
		xs[key] = append(xs[key], s.X)
		ys[key] = append(ys[key], s.Y)
	}

	centroids := make(map[FrameKey]Centroid, len(xs))
	for key, x := range xs {
		centroids[key] = Centroid{
			X: stat.Mean(x, nil),
			Y: stat.Mean(ys[key], nil),
		}
	}
	return centroids
}
