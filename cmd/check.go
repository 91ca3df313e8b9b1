package main

import (
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/4tyone/pyrethrum/internal/diagnostic"
)

var (
	checkFormat string
	checkPolicy string
	checkStrict bool
	checkSave   bool
)

// errCheckFailed signals a non-zero exit after diagnostics have already been
// written; it carries no message worth printing.
var errCheckFailed = eris.New("check failed")

var checkCmd = &cobra.Command{
	Use:   "check <document.json> [more documents...]",
	Short: "Check analysis documents for exhaustiveness gaps",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("check"); err != nil {
			return err
		}

		p, st, err := initPipeline(ctx, checkPolicy, checkSave)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		results := make([]diagnostic.Result, len(args))
		var mu sync.Mutex
		var failedFiles []string

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.Check.MaxConcurrentFiles)
		for i, path := range args {
			g.Go(func() error {
				data, err := os.ReadFile(path)
				if err != nil {
					return eris.Wrapf(err, "read %s", path)
				}
				result, err := p.Analyze(gctx, data)
				if err != nil {
					// Structural failure: this document is unusable, but the
					// remaining documents still get checked.
					zap.L().Error("document failed", zap.String("file", path), zap.Error(err))
					p.SaveFailure(gctx, path, err)
					mu.Lock()
					failedFiles = append(failedFiles, path)
					mu.Unlock()
					return nil
				}
				if result.File == "" {
					result.File = path
				}
				results[i] = result
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		failed := len(failedFiles) > 0
		for _, result := range results {
			if result.Language == "" {
				continue // document that failed structurally
			}
			switch checkFormat {
			case "json":
				err = diagnostic.WriteJSON(os.Stdout, result)
			default:
				err = diagnostic.WriteText(os.Stdout, result)
			}
			if err != nil {
				return err
			}
			if checkStrict && result.Warnings > 0 {
				failed = true
			}
			if p.Fails(result) {
				failed = true
			}
		}

		if failed {
			// Findings are data, not errors; the exit status is the only
			// thing strict mode and failures change. Returning a sentinel
			// instead of exiting here lets the deferred store close and the
			// log sync in main still run.
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			return errCheckFailed
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkFormat, "format", "text", "output format: text or json")
	checkCmd.Flags().StringVar(&checkPolicy, "policy", "", "path to a check policy file")
	checkCmd.Flags().BoolVar(&checkStrict, "strict", false, "treat warnings as build failures")
	checkCmd.Flags().BoolVar(&checkSave, "save", false, "persist this run to the store")
	rootCmd.AddCommand(checkCmd)
}
