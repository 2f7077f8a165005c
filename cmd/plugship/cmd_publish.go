package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ochairo/plugship/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/plugship/internal/domain-orchestrators"
	"github.com/ochairo/plugship/internal/domain/entities"
	"github.com/ochairo/plugship/internal/domain/services"
)

type publishOutput struct {
	Target      string `json:"target"`
	PluginID    string `json:"plugin_id"`
	Version     string `json:"version"`
	Location    string `json:"location"`
	RunID       string `json:"run_id"`
	PublishedAt string `json:"published_at"`
}

func newPublishOutput(r *entities.PublishResult) publishOutput {
	return publishOutput{
		Target:      r.Target,
		PluginID:    r.PluginID,
		Version:     r.Version,
		Location:    r.Location,
		RunID:       r.RunID,
		PublishedAt: r.PublishedAt.Format(time.RFC3339),
	}
}

func (a *app) publishCommand() *cobra.Command {
	var (
		signature string
		retries   int
	)

	cmd := &cobra.Command{
		Use:   "publish [artifact]",
		Short: "Upload a signed artifact to the descriptor's publish target",
		Long: `Upload a signed artifact with PUBLISH_TOKEN.

Without an artifact argument the descriptor's archive, signature and
checksum are looked up in its output directory and must all be present.
Retryable failures (timeouts, throttling, server errors) are retried
--retries times with exponential backoff.`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if retries < 0 {
				return usageError(fmt.Errorf("--retries must not be negative"))
			}
			ctx := cmd.Context()
			logger := a.logger()

			d, err := a.loadDescriptor(ctx)
			if err != nil {
				return err
			}
			env := a.loadEnv()

			var artifactPath, sigPath string
			if len(args) == 1 {
				artifactPath = args[0]
				sigPath = signature
				if sigPath == "" {
					sigPath = artifactPath + services.SignatureSuffix
				}
			} else {
				dir := a.orchestrator(orchestrators.ReleaseOrchestratorConfig{}, logger).OutputDir(d)
				paths, err := gateways.NewArtifactFinder().FindRelease(dir, d)
				if err != nil {
					return entities.Fatal(entities.StagePublish, err)
				}
				validation := services.NewReleaseService().ValidateRelease(d, paths)
				if !validation.IsReady() {
					return entities.Fatal(entities.StagePublish, errors.New(validation.ErrorMessage()))
				}
				artifactPath, sigPath = validation.ArtifactPath, validation.SignaturePath
			}

			if _, err := os.Stat(sigPath); err != nil {
				return entities.Fatal(entities.StagePublish, fmt.Errorf("signature not found: %w", err))
			}

			runID := a.newRunID()
			publisher, err := gateways.NewPublisher(d.Publish, runID, logger)
			if err != nil {
				return entities.Fatal(entities.StagePublish, err)
			}

			signed := &entities.SignedArtifact{
				Artifact: entities.Artifact{
					Name:          services.ArtifactBaseName(d),
					Version:       d.Identity.Version,
					Path:          artifactPath,
					Type:          entities.ArtifactTypeSigned,
					PluginID:      d.Plugin.ID,
					Compatibility: d.Compatibility,
				},
				SignaturePath: sigPath,
			}

			var result *entities.PublishResult
			err = a.withRetries(ctx, retries, logger, func() error {
				r, err := publisher.Publish(ctx, signed, env.Publish)
				result = r
				return err
			})
			if err != nil {
				return err
			}

			out := newPublishOutput(result)
			return a.emit(out, func(w io.Writer) {
				fmt.Fprintf(w, "published %s %s to %s\n", out.PluginID, out.Version, out.Location)
			})
		},
	}

	cmd.Flags().StringVar(&signature, "signature", "", "Detached signature (default: <artifact>.asc)")
	cmd.Flags().IntVar(&retries, "retries", 0, "Retry retryable failures this many times")
	return cmd
}
