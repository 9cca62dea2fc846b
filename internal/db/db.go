package db

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"

	"github.com/amanda-brooke/trackmate7-pipeline/internal/monitoring"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/radial"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/trackmate"
)

// DB wraps the tracking results database.
type DB struct {
	*sql.DB
}

// NewDB opens (creating if necessary) the sqlite database at path. Schema
// management is left to MigrateUp; callers run migrations before use.
func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return &DB{db}, nil
}

// Run is one analysis run's metadata row.
type Run struct {
	RunID      string    `json:"run_id"`
	Workflow   string    `json:"workflow"`
	BasePath   string    `json:"base_path"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Files      int       `json:"files"`
	Failures   int       `json:"failures"`
}

// InsertRun records one analysis run.
func (db *DB) InsertRun(run Run) error {
	_, err := db.Exec(
		`INSERT INTO analysis_runs (run_id, workflow, base_path, started_at, finished_at, files, failures)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Workflow, run.BasePath,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Files, run.Failures,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.RunID, err)
	}
	return nil
}

// Runs lists recorded analysis runs, newest first.
func (db *DB) Runs() ([]Run, error) {
	rows, err := db.Query(
		`SELECT run_id, workflow, base_path, started_at, finished_at, files, failures
		 FROM analysis_runs ORDER BY started_at DESC LIMIT 100`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.RunID, &r.Workflow, &r.BasePath, &started, &finished, &r.Files, &r.Failures); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// InsertDataset stores the combined spot/edge/track tables for one run in a
// single transaction.
func (db *DB) InsertDataset(runID string, ds *trackmate.Dataset) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	spotStmt, err := tx.Prepare(
		`INSERT INTO spots (run_id, file_id, spot_id, track_id, frame, x, y, time_hours, grp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer spotStmt.Close()
	for _, s := range ds.Spots {
		if _, err := spotStmt.Exec(runID, s.FileID, s.SpotID, s.TrackID, s.Frame, s.X, s.Y, s.TimeHours, string(s.Group)); err != nil {
			return fmt.Errorf("failed to insert spot %d of %s: %w", s.SpotID, s.FileID, err)
		}
	}

	edgeStmt, err := tx.Prepare(
		`INSERT INTO edges (run_id, file_id, source_id, target_id, track_id, time_hours, speed_per_min, grp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()
	for _, e := range ds.Edges {
		if _, err := edgeStmt.Exec(runID, e.FileID, e.SourceID, e.TargetID, e.TrackID, e.TimeHours, e.SpeedPerMin, string(e.Group)); err != nil {
			return fmt.Errorf("failed to insert edge %d→%d of %s: %w", e.SourceID, e.TargetID, e.FileID, err)
		}
	}

	trackStmt, err := tx.Prepare(
		`INSERT INTO tracks (run_id, file_id, track_id, number_spots, start_hours, stop_hours, duration_hours, grp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer trackStmt.Close()
	for _, tr := range ds.Tracks {
		if _, err := trackStmt.Exec(runID, tr.FileID, tr.TrackID, tr.NumberSpots, tr.StartHours, tr.StopHours, tr.DurationHours, string(tr.Group)); err != nil {
			return fmt.Errorf("failed to insert track %d of %s: %w", tr.TrackID, tr.FileID, err)
		}
	}

	return tx.Commit()
}

// InsertAnalysis stores one file's decorated edges and persistence aggregates.
func (db *DB) InsertAnalysis(runID string, analysis *radial.Analysis) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	edgeStmt, err := tx.Prepare(
		`INSERT INTO radial_edges (run_id, file_id, track_id, source_id, target_id,
		    source_frame, target_frame, source_x, source_y, target_x, target_y,
		    move_dx, move_dy, radial_dx, radial_dy, center_x, center_y,
		    radial_velocity, speed, degenerate)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()
	for _, d := range analysis.Decorated {
		if _, err := edgeStmt.Exec(runID, d.FileID, d.TrackID, d.SourceID, d.TargetID,
			d.Source.Frame, d.Target.Frame, d.Source.X, d.Source.Y, d.Target.X, d.Target.Y,
			d.MoveDX, d.MoveDY, d.RadialDX, d.RadialDY, d.CenterX, d.CenterY,
			d.RadialVelocity, d.Speed, d.DegenerateRadial); err != nil {
			return fmt.Errorf("failed to insert radial edge %d→%d of %s: %w", d.SourceID, d.TargetID, d.FileID, err)
		}
	}

	fileStmt, err := tx.Prepare(
		`INSERT INTO persistence_by_file (run_id, file_id, sum_radial_velocity, sum_speed, persistence, edges)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer fileStmt.Close()
	for fileID, result := range analysis.ByFile {
		if _, err := fileStmt.Exec(runID, fileID, result.SumRadialVelocity, result.SumSpeed,
			nullableFloat(result.Persistence), result.Edges); err != nil {
			return fmt.Errorf("failed to insert file persistence for %s: %w", fileID, err)
		}
	}

	trackStmt, err := tx.Prepare(
		`INSERT INTO persistence_by_track (run_id, file_id, track_id, sum_radial_velocity, sum_speed, persistence, edges)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer trackStmt.Close()
	for key, result := range analysis.ByTrack {
		if _, err := trackStmt.Exec(runID, key.FileID, key.TrackID, result.SumRadialVelocity, result.SumSpeed,
			nullableFloat(result.Persistence), result.Edges); err != nil {
			return fmt.Errorf("failed to insert track persistence for %s track %d: %w", key.FileID, key.TrackID, err)
		}
	}

	return tx.Commit()
}

// FilePersistence is the File_ID-level summary row served by the API.
type FilePersistence struct {
	FileID            string   `json:"file_id"`
	SumRadialVelocity float64  `json:"sum_radial_velocity"`
	SumSpeed          float64  `json:"sum_speed"`
	Persistence       *float64 `json:"persistence"`
	Edges             int      `json:"edges"`
}

// TrackPersistence is the (File_ID, Track_ID)-level summary row.
type TrackPersistence struct {
	FileID            string   `json:"file_id"`
	TrackID           int64    `json:"track_id"`
	SumRadialVelocity float64  `json:"sum_radial_velocity"`
	SumSpeed          float64  `json:"sum_speed"`
	Persistence       *float64 `json:"persistence"`
	Edges             int      `json:"edges"`
}

// PersistenceByFile returns the file-level persistence table for one run.
func (db *DB) PersistenceByFile(runID string) ([]FilePersistence, error) {
	rows, err := db.Query(
		`SELECT file_id, sum_radial_velocity, sum_speed, persistence, edges
		 FROM persistence_by_file WHERE run_id = ? ORDER BY file_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []FilePersistence
	for rows.Next() {
		var r FilePersistence
		var p sql.NullFloat64
		if err := rows.Scan(&r.FileID, &r.SumRadialVelocity, &r.SumSpeed, &p, &r.Edges); err != nil {
			return nil, err
		}
		if p.Valid {
			r.Persistence = &p.Float64
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// PersistenceByTrack returns the track-level persistence table for one run,
// optionally filtered to a single File_ID.
func (db *DB) PersistenceByTrack(runID, fileID string) ([]TrackPersistence, error) {
	query := `SELECT file_id, track_id, sum_radial_velocity, sum_speed, persistence, edges
	          FROM persistence_by_track WHERE run_id = ?`
	args := []any{runID}
	if fileID != "" {
		query += ` AND file_id = ?`
		args = append(args, fileID)
	}
	query += ` ORDER BY file_id, track_id`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []TrackPersistence
	for rows.Next() {
		var r TrackPersistence
		var p sql.NullFloat64
		if err := rows.Scan(&r.FileID, &r.TrackID, &r.SumRadialVelocity, &r.SumSpeed, &p, &r.Edges); err != nil {
			return nil, err
		}
		if p.Valid {
			r.Persistence = &p.Float64
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// RadialEdge is one decorated-edge row served by the API.
type RadialEdge struct {
	FileID         string  `json:"file_id"`
	TrackID        int64   `json:"track_id"`
	SourceID       int64   `json:"source_id"`
	TargetID       int64   `json:"target_id"`
	SourceFrame    int     `json:"source_frame"`
	TargetFrame    int     `json:"target_frame"`
	MoveDX         float64 `json:"move_dx"`
	MoveDY         float64 `json:"move_dy"`
	RadialDX       float64 `json:"radial_dx"`
	RadialDY       float64 `json:"radial_dy"`
	RadialVelocity float64 `json:"radial_velocity"`
	Speed          float64 `json:"speed"`
	Degenerate     bool    `json:"degenerate"`
}

// RadialEdges returns the decorated edge table for one run, optionally
// filtered to a single File_ID.
func (db *DB) RadialEdges(runID, fileID string, limit int) ([]RadialEdge, error) {
	if limit <= 0 {
		limit = 1000
	}
	query := `SELECT file_id, track_id, source_id, target_id, source_frame, target_frame,
	                 move_dx, move_dy, radial_dx, radial_dy, radial_velocity, speed, degenerate
	          FROM radial_edges WHERE run_id = ?`
	args := []any{runID}
	if fileID != "" {
		query += ` AND file_id = ?`
		args = append(args, fileID)
	}
	query += ` ORDER BY file_id, track_id, source_frame LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []RadialEdge
	for rows.Next() {
		var e RadialEdge
		if err := rows.Scan(&e.FileID, &e.TrackID, &e.SourceID, &e.TargetID, &e.SourceFrame, &e.TargetFrame,
			&e.MoveDX, &e.MoveDY, &e.RadialDX, &e.RadialDY, &e.RadialVelocity, &e.Speed, &e.Degenerate); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

// AttachAdminRoutes mounts the tailSQL live-query console and debug endpoints
// on the given mux.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		monitoring.Logf("failed to create tailsql server: %v", err)
		return
	}
	tsql.SetDB("sqlite://tracking.db", db.DB, &tailsql.DBOptions{
		Label: "Tracking DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())
}
