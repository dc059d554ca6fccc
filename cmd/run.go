package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medley-health/roster-cli/internal/pipeline"
	"github.com/medley-health/roster-cli/internal/roster"
	"github.com/medley-health/roster-cli/internal/store"
)

var (
	runCSV      string
	runBasePath string
	runOutput   string
	runFormat   string
	runParallel bool
	runNoStore  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a provider roster end to end",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		input, err := roster.ReadCSVFile(runCSV)
		if err != nil {
			return eris.Wrap(err, "read roster")
		}

		var st store.Store
		if !runNoStore {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}
		}

		artifacts, err := executeRun(ctx, st, input, runCSV)
		if err != nil {
			return err
		}

		if err := pipeline.WriteArtifacts(runOutput, artifacts, runFormat); err != nil {
			return err
		}

		// Print summary to stdout
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(artifacts.Summary)
	},
}

// executeRun processes the roster through the pipeline and, when a store is
// configured, records the run and replaces the persisted artifacts.
func executeRun(ctx context.Context, st store.Store, input *roster.Table, sourceFile string) (*pipeline.Artifacts, error) {
	p := newPipeline()

	var run *store.Run
	if st != nil {
		var err error
		run, err = st.CreateRun(ctx, sourceFile)
		if err != nil {
			return nil, err
		}
	}

	artifacts, err := p.Run(ctx, input)
	if err != nil {
		if run != nil {
			if failErr := st.FailRun(ctx, run.ID, err); failErr != nil {
				zap.L().Error("failed to mark run failed", zap.String("run_id", run.ID), zap.Error(failErr))
			}
		}
		return nil, eris.Wrap(err, "pipeline run")
	}

	if run != nil {
		if err := st.ReplaceArtifacts(ctx, artifacts.Duplicates, artifacts.Merged); err != nil {
			if failErr := st.FailRun(ctx, run.ID, err); failErr != nil {
				zap.L().Error("failed to mark run failed", zap.String("run_id", run.ID), zap.Error(failErr))
			}
			return nil, err
		}
		if err := st.CompleteRun(ctx, run.ID, artifacts.Summary); err != nil {
			return nil, err
		}
		zap.L().Info("run persisted", zap.String("run_id", run.ID))
	}

	return artifacts, nil
}

// newPipeline builds a Pipeline from the loaded configuration plus any
// command-line overrides.
func newPipeline() *pipeline.Pipeline {
	matchCfg := cfg.Match
	if runParallel {
		matchCfg.Parallel = true
	}
	basePath := cfg.Merge.BasePath
	if runBasePath != "" {
		basePath = runBasePath
	}
	return pipeline.New(matchCfg, &pipeline.Merger{BasePath: basePath}, cfg.Outliers)
}

func init() {
	runCmd.Flags().StringVar(&runCSV, "csv", "", "path to the provider roster CSV (required)")
	runCmd.Flags().StringVar(&runBasePath, "base-path", "", "directory holding auxiliary roster files (default from config)")
	runCmd.Flags().StringVar(&runOutput, "output", "output", "directory for run artifacts")
	runCmd.Flags().StringVar(&runFormat, "format", "json", "summary format: json or yaml")
	runCmd.Flags().BoolVar(&runParallel, "parallel", false, "score candidate pairs concurrently")
	runCmd.Flags().BoolVar(&runNoStore, "no-store", false, "skip database persistence")
	_ = runCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(runCmd)
}
