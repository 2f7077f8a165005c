package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	orchestrators "github.com/ochairo/plugship/internal/domain-orchestrators"
	"github.com/ochairo/plugship/internal/domain/interfaces"
)

type releaseOutput struct {
	Status      string         `json:"status"`
	RunID       string         `json:"run_id"`
	Attempts    int            `json:"attempts"`
	Artifact    string         `json:"artifact,omitempty"`
	SHA256      string         `json:"sha256,omitempty"`
	Signature   string         `json:"signature,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Publish     *publishOutput `json:"publish,omitempty"`
	DurationMS  int64          `json:"duration_ms"`
}

func (a *app) releaseCommand() *cobra.Command {
	var (
		dryRun  bool
		strict  bool
		retries int
		timeout time.Duration
		output  string
	)

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Run the full pipeline: validate, patch, package, sign and publish",
		Long: `Run every stage in order and stop at the first failure.

Fatal failures (missing secrets, rejected descriptors, bad keys, rejected
uploads) end the run immediately. Retryable failures rerun the pipeline up
to --retries times with exponential backoff. Exit codes: 0 success,
1 fatal failure, 2 usage error or missing secret, 3 retries exhausted.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if retries < 0 {
				return usageError(fmt.Errorf("--retries must not be negative"))
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			logger := a.logger()

			// Snapshot once; every attempt sees the same secrets
			env := a.loadEnv()

			orch := a.orchestrator(orchestrators.ReleaseOrchestratorConfig{
				OutputDir:   output,
				Policy:      policyOverride(strict),
				SkipPublish: dryRun,
			}, logger)

			req := orchestrators.RunRequest{
				DescriptorPath: a.descriptorPath,
				Environment:    env,
				RunID:          a.newRunID(),
			}
			logger.Debug("release started", interfaces.F("run_id", req.RunID), interfaces.F("dry_run", dryRun))

			var (
				result   *orchestrators.ReleaseResult
				attempts int
			)
			err := a.withRetries(ctx, retries, logger, func() error {
				attempts++
				r, err := orch.Run(ctx, req)
				result = r
				return err
			})
			if err != nil {
				return err
			}

			out := releaseOutput{
				Status:     string(result.Status),
				RunID:      result.RunID,
				Attempts:   attempts,
				DurationMS: result.TotalDuration.Milliseconds(),
			}
			if result.Signed != nil {
				out.Artifact = result.Signed.Artifact.Path
				out.SHA256 = result.Signed.Artifact.Checksum
				out.Signature = result.Signed.SignaturePath
				out.Fingerprint = result.Signed.SignerFingerprint
			}
			if result.Published != nil {
				p := newPublishOutput(result.Published)
				out.Publish = &p
			}
			return a.emit(out, func(w io.Writer) {
				fmt.Fprintln(w, result.Summary())
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Stop after signing")
	cmd.Flags().BoolVar(&strict, "strict", false, "Use the strict validation policy")
	cmd.Flags().IntVar(&retries, "retries", 0, "Retry retryable failures this many times")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Abort the release after this long (0 disables)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default: descriptor output_dir)")
	return cmd
}
