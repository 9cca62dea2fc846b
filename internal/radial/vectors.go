package radial

import (
	"math"

	"github.com/amanda-brooke/trackmate7-pipeline/internal/trackmate"
)

// ResolvedEdge is an edge whose endpoints have been joined against the spot
// table. Produced by the engine's validation pass.
type ResolvedEdge struct {
	trackmate.Edge
	Source trackmate.Spot
	Target trackmate.Spot
}

// DecoratedEdge is a resolved edge enriched with its radial decomposition.
type DecoratedEdge struct {
	ResolvedEdge

	// Movement vector: target position minus source position.
	MoveDX float64
	MoveDY float64

	// Radial reference: source position minus the centroid of the source
	// frame, the outward direction at the movement's starting instant.
	RadialDX float64
	RadialDY float64

	// Centroid used for the radial reference, kept for downstream tables.
	CenterX float64
	CenterY float64

	// RadialVelocity is the scalar projection of the movement vector onto
	// the unit radial vector (outward positive). Zero and meaningless when
	// DegenerateRadial is set.
	RadialVelocity float64

	// Speed is the Euclidean norm of the movement vector.
	Speed float64

	// DegenerateRadial marks a zero-length radial reference (source spot
	// coincides with the centroid). The edge stays in the decorated table
	// but contributes to no radial aggregate.
	DegenerateRadial bool
}

// DecorateOptions control the radial decomposition.
type DecorateOptions struct {
	// Signed keeps the outward-positive sign of the radial projection;
	// unsigned mode takes its absolute value.
	Signed bool

	// Epsilon is the squared-length tolerance below which a radial
	// reference counts as zero-length.
	Epsilon float64
}

// DecorationStats counts the locally absorbed conditions of one decoration
// pass. These are expected in sparse or short tracks and are reported, not
// raised.
type DecorationStats struct {
	// DroppedMissingCentroid counts edges whose source frame had no
	// centroid (no spots in that frame). Such edges are dropped outright:
	// a missing centroid must never be treated as zero.
	DroppedMissingCentroid int

	// DegenerateRadial counts edges flagged with a zero-length radial
	// reference.
	DegenerateRadial int
}

// DecorateEdges computes the radial decomposition for each resolved edge.
// Edges whose source frame has no centroid entry are dropped from the output,
// not assigned a sentinel. The result is row-order preserving and therefore
// deterministic for a given input order.
func DecorateEdges(edges []ResolvedEdge, centroids map[FrameKey]Centroid, opts DecorateOptions) ([]DecoratedEdge, DecorationStats) {
	decorated := make([]DecoratedEdge, 0, len(edges))
	var stats DecorationStats

	for _, e := range edges {
		center, ok := centroids[FrameKey{FileID: e.FileID, Frame: e.Source.Frame}]
		if !ok {
			stats.DroppedMissingCentroid++
			continue
		}

		d := DecoratedEdge{
			ResolvedEdge: e,
			MoveDX:       e.Target.X - e.Source.X,
			MoveDY:       e.Target.Y - e.Source.Y,
			RadialDX:     e.Source.X - center.X,
			RadialDY:     e.Source.Y - center.Y,
			CenterX:      center.X,
			CenterY:      center.Y,
		}
		d.Speed = math.Hypot(d.MoveDX, d.MoveDY)

		r2 := d.RadialDX*d.RadialDX + d.RadialDY*d.RadialDY
		if r2 <= opts.Epsilon {
			d.DegenerateRadial = true
			stats.DegenerateRadial++
			decorated = append(decorated, d)
			continue
		}

		r := math.Sqrt(r2)
		d.RadialVelocity = (d.MoveDX*d.RadialDX + d.MoveDY*d.RadialDY) / r
		if !opts.Signed {
			d.RadialVelocity = math.Abs(d.RadialVelocity)
		}
		decorated = append(decorated, d)
	}

	return decorated, stats
}
