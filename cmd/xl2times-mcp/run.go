package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deixis/xl2times-mcp/internal/workflow"
)

type runFlags struct {
	req     workflow.Request
	timeout time.Duration
	json    bool
}

func newRunCommand() *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run <input>...",
		Short: "Convert a model directory or workbooks once",
		Long: `Run xl2times once and print a summary of the result.

Inputs are a model directory or a list of .xlsx/.xlsm workbooks. The exit
status is 1 when the conversion fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.req.Input = workflow.Inputs(args)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			e, err := newEnv(flags.timeout)
			if err != nil {
				return err
			}
			defer func() { _ = e.log.Sync() }()

			resp, err := e.engine().Run(ctx, flags.req)
			if err != nil {
				return err
			}
			if err := e.store().Save(resp); err != nil {
				e.log.Warn("storing run", zap.String("run_id", resp.RunID), zap.Error(err))
			}

			out := cmd.OutOrStdout()
			if flags.json {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(resp); err != nil {
					return err
				}
			} else {
				writeRunSummary(out, resp)
			}

			if !resp.Success {
				return errFailed
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.req.OutputDir, "output-dir", "", "output directory for CSV files")
	f.StringSliceVar(&flags.req.Regions, "regions", nil, "regions to include (comma separated or repeated)")
	f.BoolVar(&flags.req.IncludeDummyImports, "include-dummy-imports", false, "include dummy import processes")
	f.StringVar(&flags.req.GroundTruthDir, "ground-truth-dir", "", "directory of reference CSVs to compare against")
	f.BoolVar(&flags.req.DD, "dd", false, "write DD files instead of CSV")
	f.BoolVar(&flags.req.OnlyRead, "only-read", false, "only read workbooks and dump raw tables")
	f.BoolVar(&flags.req.NoCache, "no-cache", false, "ignore cached workbook data")
	f.CountVarP(&flags.req.Verbose, "verbose", "v", "verbosity; repeat for more (max 4)")
	f.DurationVar(&flags.timeout, "timeout", 0, "override configured timeout (e.g. 5m)")
	f.BoolVar(&flags.json, "json", false, "output the result as JSON")
	return cmd
}

// writeRunSummary prints resp the way a person reads it: status first,
// then the lists that matter.
func writeRunSummary(w io.Writer, resp *workflow.Response) {
	if resp.Success {
		fmt.Fprintln(w, "ok")
	} else {
		fmt.Fprintln(w, "FAIL")
	}
	fmt.Fprintf(w, "\n%s\n", resp.Message)
	fmt.Fprintf(w, "  command:  %s\n", resp.Command)
	fmt.Fprintf(w, "  time:     %.1fs\n", resp.ExecutionTime)
	if resp.LogFile != "" {
		fmt.Fprintf(w, "  log:      %s\n", resp.LogFile)
	}
	fmt.Fprintf(w, "  run id:   %s\n", resp.RunID)

	list := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s (%d):\n", title, len(items))
		for _, item := range items {
			fmt.Fprintf(w, "  %s\n", item)
		}
	}
	list("Errors", resp.Errors)
	list("Warnings", resp.Warnings)
	list("Files processed", resp.FilesProcessed)
	list("Output files", resp.OutputFiles)
}
