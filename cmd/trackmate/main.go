// Command trackmate runs the radial-motion pipeline over a folder tree of
// TrackMate CSV exports: discover replicates, load and combine the spot,
// edge and track tables, analyze radial persistence per imaging file, store
// everything in sqlite, and optionally serve the results API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/amanda-brooke/trackmate7-pipeline/internal/api"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/config"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/db"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/fsutil"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/pipeline"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/radial"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/timeutil"
	"github.com/amanda-brooke/trackmate7-pipeline/internal/version"
)

var (
	dataPath      = flag.String("data", "", "Base path holding offset_* replicate folders")
	dbFile        = flag.String("db", "tracking.db", "Path to the results sqlite database")
	migrationsDir = flag.String("migrations", "db/migrations", "Path to the schema migrations")
	configPath    = flag.String("config", "", "Analysis config JSON (defaults to "+config.DefaultConfigPath+")")
	workflow      = flag.String("workflow", pipeline.WorkflowWildtype, "Workflow to run: wildtype or treatment-control")
	byTrack       = flag.Bool("by-track", false, "Print the per-track persistence table instead of per-file")
	unsigned      = flag.Bool("unsigned", false, "Use absolute radial alignment instead of signed persistence")
	workers       = flag.Int("workers", 0, "Number of files analyzed concurrently (0 = config default)")
	listen        = flag.String("listen", "", "Serve the results API on this address after the run (e.g. :8080)")
	serveOnly     = flag.Bool("serve-only", false, "Skip analysis and only serve the results API")
	showVersion   = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg := loadConfig()
	if *unsigned {
		signed := false
		cfg.SignedPersistence = &signed
	}
	if *workers > 0 {
		cfg.AnalysisWorkers = workers
	}

	database, err := db.NewDB(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()
	if err := database.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	if *serveOnly {
		serve(database)
		return
	}

	if *dataPath == "" {
		log.Fatal("-data is required")
	}

	runner := pipeline.NewRunner(fsutil.OSFileSystem{}, timeutil.RealClock{}, cfg)
	ds, batch, err := runner.Run(context.Background(), *workflow, *dataPath)
	if err != nil {
		log.Fatalf("pipeline failed: %v", err)
	}

	if err := database.InsertRun(db.Run{
		RunID:      batch.RunID,
		Workflow:   batch.Workflow,
		BasePath:   batch.BasePath,
		StartedAt:  batch.StartedAt,
		FinishedAt: batch.FinishedAt,
		Files:      len(batch.Results),
		Failures:   len(batch.Failures),
	}); err != nil {
		log.Fatalf("failed to record run: %v", err)
	}
	if err := database.InsertDataset(batch.RunID, ds); err != nil {
		log.Fatalf("failed to store combined tables: %v", err)
	}
	for fileID, analysis := range batch.Results {
		if err := database.InsertAnalysis(batch.RunID, analysis); err != nil {
			log.Fatalf("failed to store analysis of %s: %v", fileID, err)
		}
	}

	if *byTrack {
		printTrackSummary(batch)
	} else {
		printSummary(batch)
	}

	if len(batch.Failures) > 0 && len(batch.Results) == 0 {
		os.Exit(1)
	}

	if *listen != "" {
		serve(database)
	}
}

func loadConfig() *config.AnalysisConfig {
	path := *configPath
	if path == "" {
		path = config.DefaultConfigPath
	}
	cfg, err := config.LoadAnalysisConfig(path)
	if err != nil {
		if *configPath != "" {
			log.Fatalf("failed to load config: %v", err)
		}
		// No explicit config and no defaults file on disk: compiled-in
		// defaults apply.
		return config.EmptyAnalysisConfig()
	}
	return cfg
}

func printSummary(batch *pipeline.BatchResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Radial persistence, run %s", batch.RunID)
	t.AppendHeader(table.Row{"File", "Edges", "Σ radial velocity", "Σ speed", "Persistence"})

	fileIDs := make([]string, 0, len(batch.Results))
	for fileID := range batch.Results {
		fileIDs = append(fileIDs, fileID)
	}
	sort.Strings(fileIDs)

	for _, fileID := range fileIDs {
		result, ok := batch.Results[fileID].ByFile[fileID]
		if !ok {
			t.AppendRow(table.Row{fileID, 0, "-", "-", "no edges"})
			continue
		}
		persistence := "missing"
		if result.Persistence != nil {
			persistence = fmt.Sprintf("%.4f", *result.Persistence)
		}
		t.AppendRow(table.Row{
			fileID,
			result.Edges,
			fmt.Sprintf("%.4f", result.SumRadialVelocity),
			fmt.Sprintf("%.4f", result.SumSpeed),
			persistence,
		})
	}

	for fileID, err := range batch.Failures {
		t.AppendRow(table.Row{fileID, "-", "-", "-", fmt.Sprintf("FAILED: %v", err)})
	}

	t.Render()
}

func printTrackSummary(batch *pipeline.BatchResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Radial persistence by track, run %s", batch.RunID)
	t.AppendHeader(table.Row{"File", "Track", "Edges", "Σ radial velocity", "Σ speed", "Persistence"})

	var keys []radial.TrackKey
	for _, analysis := range batch.Results {
		for key := range analysis.ByTrack {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].FileID != keys[j].FileID {
			return keys[i].FileID < keys[j].FileID
		}
		return keys[i].TrackID < keys[j].TrackID
	})

	for _, key := range keys {
		result := batch.Results[key.FileID].ByTrack[key]
		persistence := "missing"
		if result.Persistence != nil {
			persistence = fmt.Sprintf("%.4f", *result.Persistence)
		}
		t.AppendRow(table.Row{
			key.FileID,
			key.TrackID,
			result.Edges,
			fmt.Sprintf("%.4f", result.SumRadialVelocity),
			fmt.Sprintf("%.4f", result.SumSpeed),
			persistence,
		})
	}

	for fileID, err := range batch.Failures {
		t.AppendRow(table.Row{fileID, "-", "-", "-", "-", fmt.Sprintf("FAILED: %v", err)})
	}

	t.Render()
}

func serve(database *db.DB) {
	addr := *listen
	if addr == "" {
		addr = ":8080"
	}
	server := api.NewServer(database)
	log.Printf("%s serving results API on %s", version.String(), addr)
	if err := http.ListenAndServe(addr, server.ServeMux()); err != nil {
		log.Fatalf("HTTP server error: %v", err)
	}
}
