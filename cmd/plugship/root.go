package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ochairo/plugship/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/plugship/internal/domain-orchestrators"
	"github.com/ochairo/plugship/internal/domain/entities"
	"github.com/ochairo/plugship/internal/domain/interfaces"
	ports "github.com/ochairo/plugship/internal/domain/interfaces/gateways"
	"github.com/ochairo/plugship/internal/domain/services"
	"github.com/ochairo/plugship/internal/external-adapters/console"
	"github.com/ochairo/plugship/internal/external-adapters/environment"
	"github.com/ochairo/plugship/internal/external-adapters/yaml"
)

// app carries global flags and the process boundary so commands can be
// exercised in tests without touching the real environment
type app struct {
	stdout io.Writer
	stderr io.Writer

	verbose        bool
	jsonOutput     bool
	descriptorPath string

	loadEnv  func() entities.ReleaseEnvironment
	newRunID func() string
	sleep    func(ctx context.Context, d time.Duration) error
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:   stdout,
		stderr:   stderr,
		loadEnv:  environment.NewOSLoader().Load,
		newRunID: uuid.NewString,
		sleep:    sleepContext,
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "plugship",
		Short: "Release pipeline for IDE platform plugins",
		Long: `plugship turns a declarative plugin descriptor into a patched, packaged,
signed and published plugin archive.

Secrets are read once per invocation from CERTIFICATE_CHAIN, PRIVATE_KEY,
PRIVATE_KEY_PASSWORD and PUBLISH_TOKEN. Key material may be given inline
or as a path to a file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "Output in JSON format")
	root.PersistentFlags().StringVarP(&a.descriptorPath, "file", "f", ".", "Descriptor file or project directory")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	root.AddCommand(
		a.descriptorCommand(),
		a.validateCommand(),
		a.patchCommand(),
		a.packageCommand(),
		a.signCommand(),
		a.publishCommand(),
		a.releaseCommand(),
		a.verifyCommand(),
	)
	return root
}

// execute runs the CLI and returns the process exit code
func (a *app) execute(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := a.rootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		a.printError(err)
	}
	return exitCode(err)
}

func (a *app) printError(err error) {
	if a.jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message":   err.Error(),
				"exit_code": exitCode(err),
				"retryable": entities.IsRetryable(err),
			},
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(a.stderr, string(data))
		return
	}
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
}

func (a *app) logger() interfaces.Logger {
	return console.NewLogger(a.stderr, a.verbose)
}

func (a *app) loadDescriptor(ctx context.Context) (*entities.Descriptor, error) {
	d, err := yaml.NewDescriptorRepository().Load(ctx, a.descriptorPath)
	if err != nil {
		return nil, entities.Fatal(entities.StageLoad, fmt.Errorf("failed to load descriptor: %w", err))
	}
	return d, nil
}

func (a *app) orchestrator(config orchestrators.ReleaseOrchestratorConfig, logger interfaces.Logger) *orchestrators.ReleaseOrchestrator {
	publishers := func(settings entities.PublishSettings, runID string) (ports.Publisher, error) {
		return gateways.NewPublisher(settings, runID, logger)
	}
	return orchestrators.NewReleaseOrchestrator(
		yaml.NewDescriptorRepository(),
		gateways.NewPackager(),
		gateways.NewPGPSigner(logger),
		publishers,
		config,
		logger,
	)
}

// emit writes v as JSON under --json, otherwise calls text
func (a *app) emit(v interface{}, text func(w io.Writer)) error {
	if a.jsonOutput {
		enc := json.NewEncoder(a.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(a.stdout)
	return nil
}

func policyOverride(strict bool) string {
	if strict {
		return services.PolicyStrict
	}
	return ""
}
