package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobmate/match-service/internal/scheduler"
)

// One-shot commands sharing the serve wiring. Each prints its result as
// JSON on stdout.

var (
	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Run an auto-match scan once",
	}

	scanCandidateCmd = &cobra.Command{
		Use:   "candidate <cvAnalysisId>",
		Short: "Match one CV analysis against every active auto-match job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("cvAnalysisId", args[0])
			if err != nil {
				return err
			}
			return withDeps(cmd, func(ctx context.Context, d *deps) error {
				created, err := d.scanner.ScanCVAnalysis(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"created": len(created), "matches": created})
			})
		},
	}

	scanJobCmd = &cobra.Command{
		Use:   "job <jobId>",
		Short: "Match one job against the latest CV analysis of every candidate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("jobId", args[0])
			if err != nil {
				return err
			}
			return withDeps(cmd, func(ctx context.Context, d *deps) error {
				created, err := d.scanner.ScanJob(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"created": len(created), "matches": created})
			})
		},
	}

	scoreCmd = &cobra.Command{
		Use:   "score <candidateId> <jobId>",
		Short: "Print the direct score and breakdown of a candidate for a job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			candidateID, err := parseID("candidateId", args[0])
			if err != nil {
				return err
			}
			jobID, err := parseID("jobId", args[1])
			if err != nil {
				return err
			}
			return withDeps(cmd, func(ctx context.Context, d *deps) error {
				res, err := d.scores.Direct(ctx, candidateID, jobID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create the matches and notifications tables if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDeps(cmd, func(ctx context.Context, d *deps) error {
				if err := d.store.EnsureSchema(ctx); err != nil {
					return fmt.Errorf("ensure schema: %w", err)
				}
				d.log.Info("schema ready")
				return nil
			})
		},
	}

	sweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "Expire stale matches once, optionally rescanning every active job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rescan, _ := cmd.Flags().GetBool("rescan")
			return withDeps(cmd, func(ctx context.Context, d *deps) error {
				sched := scheduler.New(d.store, d.store, d.scanner, scheduler.Options{}, d.log)
				out := map[string]any{"expired": sched.Sweep(ctx)}
				if rescan {
					out["created"] = sched.Rescan(ctx)
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
)

func init() {
	scanCmd.AddCommand(scanCandidateCmd, scanJobCmd)
	sweepCmd.Flags().Bool("rescan", false, "also rescan active auto-match jobs")
	rootCmd.AddCommand(scanCmd, scoreCmd, migrateCmd, sweepCmd)
}

// withDeps opens the shared dependencies, runs fn and releases them.
func withDeps(cmd *cobra.Command, fn func(context.Context, *deps) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	d, err := openDeps(openCtx, cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := fn(ctx, d); err != nil {
		log.Error("command failed", zap.String("command", cmd.CommandPath()), zap.Error(err))
		return err
	}
	return nil
}

func parseID(name, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, s)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
