// Package pipeline orchestrates the full workflow: discover replicate
// folders, load and combine TrackMate exports, and run the radial analysis
// per imaging file. Loading, combining and analyzing are three independent
// stages connected by immutable tables; no stage mutates another's output.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/amanda-brooke/trackmate7-pipeline/internal/config"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/fsutil"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/monitoring"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/radial"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/timeutil"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/trackmate"
)

// Workflow names
const (
	WorkflowWildtype         = "wildtype"
	WorkflowTreatmentControl = "treatment-control"
)

// Runner wires the loading layer, the analysis engine and the clock together
// for one configured pipeline.
type Runner struct {
	FS     fsutil.FileSystem
	Clock  timeutil.Clock
	Config *config.AnalysisConfig

	engine *radial.Engine
}

// NewRunner builds a Runner over the given filesystem and configuration.
func NewRunner(fsys fsutil.FileSystem, clock timeutil.Clock, cfg *config.AnalysisConfig) *Runner {
	if cfg == nil {
		cfg = config.EmptyAnalysisConfig()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Runner{
		FS:     fsys,
		Clock:  clock,
		Config: cfg,
		engine: radial.NewEngine(cfg),
	}
}

// LoadWildtype discovers offset folders under basePath and loads the
// wildtype layout (offset_N/<datatype>/) into one combined Dataset.
func (r *Runner) LoadWildtype(basePath string) (*trackmate.Dataset, error) {
	offsets, err := trackmate.DiscoverOffsets(r.FS, basePath)
	if err != nil {
		return nil, err
	}
	if len(offsets) == 0 {
		return nil, fmt.Errorf("no offset folders found under %s", basePath)
	}

	combined := &trackmate.Dataset{}
	for _, offset := range offsets {
		loader := trackmate.NewLoader(r.FS, trackmate.GroupWildtype,
			trackmate.ReplicateID(offset, trackmate.GroupWildtype), offset.OffsetHours, r.Config)
		for _, dt := range trackmate.DataTypes {
			folder, err := trackmate.WildtypeFolder(r.FS, offset, dt)
			if err != nil {
				monitoring.Logf("pipeline: skipping %s %s: %v", offset.Name, dt, err)
				continue
			}
			part, err := loader.LoadFolder(folder, dt)
			if err != nil {
				return nil, fmt.Errorf("failed to load %s %s: %w", offset.Name, dt, err)
			}
			combined.Merge(part)
		}
	}
	return combined, nil
}

// LoadTreatmentControl discovers offset folders and their group subfolders
// (offset_N/<group>/<datatype>/) and loads everything into one combined
// Dataset with per-row Group labels.
func (r *Runner) LoadTreatmentControl(basePath string) (*trackmate.Dataset, error) {
	offsets, err := trackmate.DiscoverOffsets(r.FS, basePath)
	if err != nil {
		return nil, err
	}
	if len(offsets) == 0 {
		return nil, fmt.Errorf("no offset folders found under %s", basePath)
	}

	combined := &trackmate.Dataset{}
	for _, offset := range offsets {
		groups, err := trackmate.DiscoverGroupFolders(r.FS, offset)
		if err != nil {
			return nil, err
		}
		for group, folders := range groups {
			loader := trackmate.NewLoader(r.FS, group,
				trackmate.ReplicateID(offset, group), offset.OffsetHours, r.Config)
			for dt, folder := range folders {
				part, err := loader.LoadFolder(folder, dt)
				if err != nil {
					return nil, fmt.Errorf("failed to load %s %s %s: %w", offset.Name, group, dt, err)
				}
				combined.Merge(part)
			}
		}
	}
	return combined, nil
}

// BatchResult collects per-file analysis outcomes for one run. A failed file
// appears in Failures and nowhere else; it never aborts its siblings.
type BatchResult struct {
	RunID      string
	Workflow   string
	BasePath   string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    map[string]*radial.Analysis
	Failures   map[string]error
}

// AnalyzeBatch runs the radial analysis for every File_ID in the dataset,
// fanning files out over a bounded worker pool. Each file's analysis is a
// pure function of that file's rows, so workers share nothing but the engine.
func (r *Runner) AnalyzeBatch(ctx context.Context, ds *trackmate.Dataset) *BatchResult {
	batch := &BatchResult{
		RunID:     uuid.NewString(),
		StartedAt: r.Clock.Now(),
		Results:   make(map[string]*radial.Analysis),
		Failures:  make(map[string]error),
	}

	spotsByFile := make(map[string][]trackmate.Spot)
	for _, s := range ds.Spots {
		spotsByFile[s.FileID] = append(spotsByFile[s.FileID], s)
	}
	edgesByFile := make(map[string][]trackmate.Edge)
	for _, e := range ds.Edges {
		edgesByFile[e.FileID] = append(edgesByFile[e.FileID], e)
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Config.GetAnalysisWorkers())

	for _, fileID := range ds.FileIDs() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			analysis, err := r.engine.Analyze(spotsByFile[fileID], edgesByFile[fileID])

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				batch.Failures[fileID] = err
				monitoring.Logf("pipeline: analysis of %s failed: %v", fileID, err)
				return nil // failures are isolated per file
			}
			batch.Results[fileID] = analysis
			return nil
		})
	}
	// Workers only return context errors; a cancelled batch keeps whatever
	// completed before cancellation.
	if err := g.Wait(); err != nil {
		monitoring.Logf("pipeline: batch cancelled: %v", err)
	}

	batch.FinishedAt = r.Clock.Now()
	return batch
}

// Run executes one full workflow: load, combine, analyze. The returned
// Dataset is the combined input table set; the BatchResult carries per-file
// analyses and failures.
func (r *Runner) Run(ctx context.Context, workflow, basePath string) (*trackmate.Dataset, *BatchResult, error) {
	var ds *trackmate.Dataset
	var err error
	switch workflow {
	case WorkflowWildtype:
		ds, err = r.LoadWildtype(basePath)
	case WorkflowTreatmentControl:
		ds, err = r.LoadTreatmentControl(basePath)
	default:
		return nil, nil, fmt.Errorf("unknown workflow %q", workflow)
	}
	if err != nil {
		return nil, nil, err
	}

	start := r.Clock.Now()
	batch := r.AnalyzeBatch(ctx, ds)
	batch.Workflow = workflow
	batch.BasePath = basePath
	monitoring.Logf("pipeline: %s run %s analyzed %d file(s), %d failure(s) in %s",
		workflow, batch.RunID, len(batch.Results), len(batch.Failures), r.Clock.Since(start))

	return ds, batch, nil
}
