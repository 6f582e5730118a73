package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/forestplan/core/search"
)

var solveCmd = &cobra.Command{
	Use:   "solve [problem]",
	Short: "Solve the whole horizon with one engine run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  solve,
}

func init() {
	solveCmd.Long = "Solve the whole horizon with the engine named in solver.name (" +
		strings.Join(search.Solvers(), ", ") + ")."
	rootCmd.AddCommand(solveCmd)
}

func solve(cmd *cobra.Command, args []string) error {
	ctx, svc, p, cleanup, err := runtime(args, nil)
	if err != nil {
		return err
	}
	defer cleanup()
	res, err := svc.Solve(ctx, p)
	if err != nil {
		return err
	}
	svc.Logger().Infof("%s %s: objective %.3f after %d iterations", res.Solver, res.Status, res.Objective, res.Iterations)
	return output(cmd, res, res.Schedule)
}
