package trackmate

import (
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/amanda-brooke/trackmate7-pipeline/internal/config"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/fsutil"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/monitoring"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/units"
)

// TrackMate exports carry three header rows: canonical column names, human
// labels, and units. Row 0 is the real header; rows 1 and 2 are skipped.
const headerRows = 3

// Loader reads the TrackMate CSVs of one export folder for one data type and
// produces clean records: numeric cells coerced, missing values filled, time
// units converted to hours with the replicate offset applied, File_ID and
// Group attached.
type Loader struct {
	FS          fsutil.FileSystem
	Group       Group
	ReplicateID string  // replicate folder identity, baked into File_ID
	OffsetHours float64 // per-replicate time offset
	Config      *config.AnalysisConfig
}

// NewLoader creates a Loader for one (replicate, group) pair.
func NewLoader(fsys fsutil.FileSystem, group Group, replicateID string, offsetHours float64, cfg *config.AnalysisConfig) *Loader {
	if cfg == nil {
		cfg = config.EmptyAnalysisConfig()
	}
	return &Loader{
		FS:          fsys,
		Group:       group,
		ReplicateID: replicateID,
		OffsetHours: offsetHours,
		Config:      cfg,
	}
}

// LoadFolder loads every CSV of the given data type in folder and returns the
// combined rows. Files that are not CSVs are ignored.
func (l *Loader) LoadFolder(folder string, dataType DataType) (*Dataset, error) {
	entries, err := l.FS.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to read export folder %s: %w", folder, err)
	}

	ds := &Dataset{}
	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		path := filepath.Join(folder, entry.Name())
		part, err := l.loadFile(path, dataType)
		if err != nil {
			return nil, err
		}
		ds.Merge(part)
		loaded++
	}
	if loaded == 0 {
		monitoring.Logf("warning: no CSV files in %s", folder)
	}
	return ds, nil
}

// loadFile reads one CSV export into records of the given data type.
func (l *Loader) loadFile(path string, dataType DataType) (*Dataset, error) {
	f, err := l.FS.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // TrackMate label rows can be ragged
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV %s: %w", path, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("empty CSV %s", path)
	}

	cols := headerIndex(records[0])
	body := records[min(headerRows, len(records)):]
	fileID := l.fileID(path, dataType)

	ds := &Dataset{}
	switch dataType {
	case DataSpots:
		if err := requireColumns(path, cols, "ID", "TRACK_ID", "POSITION_X", "POSITION_Y", "POSITION_T", "FRAME"); err != nil {
			return nil, err
		}
		for _, rec := range body {
			ds.Spots = append(ds.Spots, Spot{
				SpotID:    int64(l.cell(rec, cols, "ID")),
				FileID:    fileID,
				TrackID:   int64(l.cell(rec, cols, "TRACK_ID")),
				Frame:     int(l.cell(rec, cols, "FRAME")),
				X:         l.cell(rec, cols, "POSITION_X"),
				Y:         l.cell(rec, cols, "POSITION_Y"),
				TimeHours: l.toHours(l.cell(rec, cols, "POSITION_T")),
				Group:     l.Group,
			})
		}
	case DataEdges:
		if err := requireColumns(path, cols, "SPOT_SOURCE_ID", "SPOT_TARGET_ID", "TRACK_ID", "EDGE_TIME", "SPEED"); err != nil {
			return nil, err
		}
		for _, rec := range body {
			ds.Edges = append(ds.Edges, Edge{
				SourceID:    int64(l.cell(rec, cols, "SPOT_SOURCE_ID")),
				TargetID:    int64(l.cell(rec, cols, "SPOT_TARGET_ID")),
				FileID:      fileID,
				TrackID:     int64(l.cell(rec, cols, "TRACK_ID")),
				TimeHours:   l.toHours(l.cell(rec, cols, "EDGE_TIME")),
				SpeedPerMin: units.SpeedPerSecondToPerMinute(l.cell(rec, cols, "SPEED")),
				Group:       l.Group,
			})
		}
	case DataTracks:
		if err := requireColumns(path, cols, "TRACK_ID", "NUMBER_SPOTS", "TRACK_START", "TRACK_STOP", "TRACK_DURATION"); err != nil {
			return nil, err
		}
		for _, rec := range body {
			ds.Tracks = append(ds.Tracks, Track{
				TrackID:       int64(l.cell(rec, cols, "TRACK_ID")),
				FileID:        fileID,
				NumberSpots:   int(l.cell(rec, cols, "NUMBER_SPOTS")),
				StartHours:    l.toHours(l.cell(rec, cols, "TRACK_START")),
				StopHours:     l.toHours(l.cell(rec, cols, "TRACK_STOP")),
				DurationHours: units.DurationSecondsToHours(l.cell(rec, cols, "TRACK_DURATION")),
				Group:         l.Group,
			})
		}
	default:
		return nil, fmt.Errorf("unknown data type %q", dataType)
	}

	return ds, nil
}

// fileID builds the composite File_ID: CSV base name with the data-type
// suffix stripped, joined with the replicate identity.
func (l *Loader) fileID(path string, dataType DataType) string {
	stem := strings.TrimSuffix(filepath.Base(path), ".csv")
	suffix := "_" + string(dataType)
	baseID := strings.TrimSuffix(stem, suffix)
	return baseID + "_" + l.ReplicateID
}

// toHours converts a seconds timestamp to hours and applies the offset.
func (l *Loader) toHours(seconds float64) float64 {
	return units.SecondsToHours(seconds, l.OffsetHours)
}

// cell parses one field as a float. Missing columns, short rows and
// non-numeric cells all coerce to the configured fill value (the upstream
// contract is filled-not-absent).
func (l *Loader) cell(rec []string, cols map[string]int, name string) float64 {
	idx, ok := cols[name]
	if !ok || idx >= len(rec) {
		return l.Config.GetFillMissingValue()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
	if err != nil {
		return l.Config.GetFillMissingValue()
	}
	return v
}

// headerIndex maps canonical column names to field positions.
func headerIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	return cols
}

// requireColumns validates that the export carries the canonical columns.
func requireColumns(path string, cols map[string]int, names ...string) error {
	for _, name := range names {
		if _, ok := cols[name]; !ok {
			return fmt.Errorf("CSV %s missing required column %s", path, name)
		}
	}
	return nil
}
