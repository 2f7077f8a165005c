package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	orchestrators "github.com/ochairo/plugship/internal/domain-orchestrators"
	"github.com/ochairo/plugship/internal/domain/entities"
)

type artifactOutput struct {
	Path     string `json:"path"`
	SHA256   string `json:"sha256"`
	PluginID string `json:"plugin_id,omitempty"`
	Version  string `json:"version"`
}

func (a *app) packageCommand() *cobra.Command {
	var (
		output string
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "package",
		Short: "Patch the manifest and build the plugin archive",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			orch := a.orchestrator(orchestrators.ReleaseOrchestratorConfig{
				OutputDir: output,
				Policy:    policyOverride(strict),
			}, a.logger())

			result, err := orch.Run(cmd.Context(), orchestrators.RunRequest{
				DescriptorPath: a.descriptorPath,
				RunID:          a.newRunID(),
				Until:          entities.StagePackage,
			})
			if err != nil {
				return err
			}

			out := artifactOutput{
				Path:     result.Artifact.Path,
				SHA256:   result.Artifact.Checksum,
				PluginID: result.Artifact.PluginID,
				Version:  result.Artifact.Version,
			}
			return a.emit(out, func(w io.Writer) {
				fmt.Fprintf(w, "%s\n", out.Path)
				fmt.Fprintf(w, "sha256: %s\n", out.SHA256)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default: descriptor output_dir)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Use the strict validation policy")
	return cmd
}
