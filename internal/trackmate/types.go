// Package trackmate models TrackMate CSV exports (spot, edge and track
// tables) and loads them into clean, numeric, unit-converted records.
//
// One imaging file produces three CSVs (<name>_spots.csv, <name>_edges.csv,
// <name>_tracks.csv). A File_ID combines the CSV base name with the replicate
// folder identity so the same base name in two replicates stays distinct.
package trackmate

// Group is the experimental group label attached to every loaded row.
type Group string

// Experimental groups
const (
	GroupWildtype  Group = "Wildtype"
	GroupTreatment Group = "Treatment"
	GroupControl   Group = "Control"
)

// DataType selects which TrackMate export table a folder holds.
type DataType string

// Export table types
const (
	DataSpots  DataType = "spots"
	DataEdges  DataType = "edges"
	DataTracks DataType = "tracks"
)

// DataTypes lists all export table types in load order.
var DataTypes = []DataType{DataSpots, DataEdges, DataTracks}

// Spot is one detection: a position for one track at one frame.
// Positions are only meaningful within the coordinate frame of their FileID.
type Spot struct {
	SpotID    int64   // unique within (FileID, Frame)
	FileID    string  // source imaging file key
	TrackID   int64   // trajectory the spot belongs to
	Frame     int     // time index
	X         float64 // position, file length units
	Y         float64
	TimeHours float64 // POSITION_T converted to hours, offset applied
	Group     Group
}

// Edge is one directed movement between two spots of the same track across
// consecutive frames. Endpoint positions and frames are resolved against the
// spot table at analysis time, not at load time.
type Edge struct {
	SourceID    int64 // SPOT_SOURCE_ID
	TargetID    int64 // SPOT_TARGET_ID
	FileID      string
	TrackID     int64
	TimeHours   float64 // EDGE_TIME converted to hours, offset applied
	SpeedPerMin float64 // TrackMate SPEED converted to per-minute
	Group       Group
}

// Track is one whole-trajectory summary row from the tracks export.
type Track struct {
	TrackID       int64
	FileID        string
	NumberSpots   int
	StartHours    float64
	StopHours     float64
	DurationHours float64
	Group         Group
}

// Dataset holds the three combined tables for one workflow run.
type Dataset struct {
	Spots  []Spot
	Edges  []Edge
	Tracks []Track
}

// FileIDs returns the distinct File_IDs present in the spot table, in first
// appearance order.
func (d *Dataset) FileIDs() []string {
	seen := map[string]bool{}
	var ids []string
	for _, s := range d.Spots {
		if !seen[s.FileID] {
			seen[s.FileID] = true
			ids = append(ids, s.FileID)
		}
	}
	return ids
}

// Merge appends another dataset's rows onto d.
func (d *Dataset) Merge(other *Dataset) {
	d.Spots = append(d.Spots, other.Spots...)
	d.Edges = append(d.Edges, other.Edges...)
	d.Tracks = append(d.Tracks, other.Tracks...)
}
