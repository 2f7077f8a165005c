package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	orchestrators "github.com/ochairo/plugship/internal/domain-orchestrators"
	"github.com/ochairo/plugship/internal/domain/entities"
	"github.com/ochairo/plugship/internal/domain/interfaces"
	"github.com/ochairo/plugship/internal/domain/services"
)

func (a *app) patchCommand() *cobra.Command {
	var in, out string

	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Write plugin.xml with the descriptor's version and compatibility range",
		Long: `Patch <version> and <idea-version> into a plugin.xml.

Without --in the descriptor's plugin_xml is used; when the descriptor names
none a minimal plugin.xml is rendered. Without --out the result goes to
stdout.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.loadDescriptor(cmd.Context())
			if err != nil {
				return err
			}
			if in != "" {
				abs, err := filepath.Abs(in)
				if err != nil {
					return usageError(err)
				}
				d.Plugin.PluginXML = abs
			}

			logger := a.logger()
			orch := a.orchestrator(orchestrators.ReleaseOrchestratorConfig{}, logger)
			pluginXML, _, err := orch.PrepareManifests(d, services.ResolveCompilerSettings(d.LanguageLevel))
			if err != nil {
				return entities.Fatal(entities.StagePatch, err)
			}

			if out == "" || out == "-" {
				_, err := a.stdout.Write(pluginXML)
				return err
			}
			if dir := filepath.Dir(out); dir != "" {
				if err := os.MkdirAll(dir, 0750); err != nil {
					return entities.Fatal(entities.StagePatch, fmt.Errorf("failed to create output directory: %w", err))
				}
			}
			//nolint:gosec // G306: plugin.xml is not secret
			if err := os.WriteFile(out, pluginXML, 0644); err != nil {
				return entities.Fatal(entities.StagePatch, fmt.Errorf("failed to write plugin.xml: %w", err))
			}
			logger.Info("plugin.xml patched", interfaces.F("path", out))
			return nil
		},
	}

	cmd.Flags().StringVar(&in, "in", "", "Base plugin.xml (default: descriptor plugin_xml)")
	cmd.Flags().StringVar(&out, "out", "", "Output path (default: stdout)")
	return cmd
}
