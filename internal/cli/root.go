// Package cli implements kernelctl, the operator command line over the
// kernel. Every command opens the configured store, runs one operation and
// prints the result as JSON (or YAML with --output yaml).
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Harshitk-cp/mindkernel/internal/config"
	"github.com/Harshitk-cp/mindkernel/internal/kernel"
)

const skipKernel = "skip-kernel"

// Opener builds the kernel a command runs against.
type Opener func(ctx context.Context) (*kernel.Kernel, error)

type app struct {
	open   Opener
	k      *kernel.Kernel
	output string
	envArg string
}

// DefaultOpener loads the environment config and opens the configured
// store.
func DefaultOpener(ctx context.Context) (*kernel.Kernel, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := kernel.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return kernel.Open(ctx, cfg, logger)
}

// Execute runs kernelctl against the environment configuration.
func Execute() error {
	return Run(context.Background(), DefaultOpener, os.Args[1:], os.Stdout)
}

// Run executes one kernelctl invocation and always closes the kernel it
// opened, including when the command fails.
func Run(ctx context.Context, open Opener, args []string, out io.Writer) error {
	cmd, a := newRootCmd(open)
	cmd.SetArgs(args)
	cmd.SetOut(out)
	err := cmd.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}

func NewRootCmd(open Opener) *cobra.Command {
	cmd, _ := newRootCmd(open)
	return cmd
}

func newRootCmd(open Opener) (*cobra.Command, *app) {
	a := &app{open: open}

	cmd := &cobra.Command{
		Use:   "kernelctl",
		Short: "Operate the memory promotion kernel",
		Long: `kernelctl drives the promotion pipeline, the lifecycle scheduler and the
audit trail against the store configured by STORE_DRIVER.

Examples:
  kernelctl ingest-memory --file note.md
  kernelctl memory-to-experience --memory-id mem_1 --summary "..." --outcome "..."
  kernelctl work --once`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipKernel] == "true" {
				return nil
			}
			if a.envArg != "" {
				if err := os.Setenv("MINDKERNEL_ENV", a.envArg); err != nil {
					return err
				}
			}
			if a.output != "json" && a.output != "yaml" {
				return fmt.Errorf("unsupported --output %q", a.output)
			}
			k, err := a.open(cmd.Context())
			if err != nil {
				return fmt.Errorf("open kernel: %w", err)
			}
			a.k = k
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	cmd.PersistentFlags().StringVar(&a.output, "output", "json", "Output format (json, yaml)")
	cmd.PersistentFlags().StringVar(&a.envArg, "env-file", "", "Env file to load (overrides MINDKERNEL_ENV)")

	cmd.AddCommand(
		newInitDBCmd(a),
		newIngestMemoryCmd(a),
		newMemoryToExperienceCmd(a),
		newUpsertPersonaCmd(a),
		newExperienceToCognitionCmd(a),
		newIngestCognitionCmd(a),
		newCognitionToDecisionCmd(a),
		newBlockedDecisionCmd(a),
		newRunFullPathCmd(a),
		newEnqueueCmd(a),
		newPullCmd(a),
		newAckCmd(a),
		newFailCmd(a),
		newStatsCmd(a),
		newWorkCmd(a),
		newSweepCmd(a),
		newListAuditsCmd(a),
		newReplayCmd(a),
		newVerifyAuditCmd(a),
		newVersionCmd(),
	)
	return cmd, a
}

func (a *app) close() error {
	if a.k == nil {
		return nil
	}
	err := a.k.Close()
	a.k = nil
	return err
}

// print writes v to the command's stdout in the selected format.
func (a *app) print(cmd *cobra.Command, v any) error {
	return writeOutput(cmd.OutOrStdout(), a.output, v)
}

func writeOutput(w io.Writer, format string, v any) error {
	if format == "yaml" {
		// Round trip through JSON so field names follow the json tags.
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
