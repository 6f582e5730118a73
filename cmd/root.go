// Package cmd implements the forestplan command line.
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/forestplan/app"
	"github.com/kilianp07/forestplan/config"
	"github.com/kilianp07/forestplan/core/model"
	"github.com/kilianp07/forestplan/core/monitoring"
	"github.com/kilianp07/forestplan/pkg/export"
)

var (
	cfgPath string
	outPath string
	format  string
)

var rootCmd = &cobra.Command{
	Use:           "forestplan",
	Short:         "Harvest scheduling with metaheuristic search",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
	rootCmd.PersistentFlags().StringVarP(&outPath, "out", "o", "", "output file, stdout when empty")
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", "json", "output format: json, or csv for the assignments only")
}

// Execute runs the CLI.
func Execute() error {
	defer monitoring.Recover()
	return rootCmd.Execute()
}

// runtime loads the configuration, applies override, builds the service and
// returns a context canceled on SIGINT, SIGTERM or a remote cancel request.
func runtime(problemArg []string, override func(*config.Config)) (context.Context, *app.Service, *model.Problem, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	if override != nil {
		override(cfg)
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, nil, nil, nil, err
		}
	}
	path := cfg.Solver.Problem
	if len(problemArg) > 0 {
		path = problemArg[0]
	}
	if path == "" {
		return nil, nil, nil, nil, fmt.Errorf("no problem file given")
	}
	p, err := model.LoadProblem(path)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load problem: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := svc.Start(ctx)
	cleanup := func() {
		cancel()
		stop()
		if err := svc.Close(); err != nil {
			svc.Logger().Errorf("service close: %v", err)
		}
	}
	return ctx, svc, p, cleanup, nil
}

// output writes v as JSON, or the assignments as CSV when --format csv.
func output(cmd *cobra.Command, v any, assignments []model.Assignment) (err error) {
	w := cmd.OutOrStdout()
	if outPath != "" {
		f, ferr := os.Create(outPath)
		if ferr != nil {
			return ferr
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "csv":
		return export.WriteCSV(w, assignments)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
