// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ochairo/plugship/internal/domain/entities"
	"github.com/ochairo/plugship/internal/domain/interfaces"
	"github.com/ochairo/plugship/internal/domain/interfaces/gateways"
	"github.com/ochairo/plugship/internal/domain/interfaces/repositories"
	"github.com/ochairo/plugship/internal/domain/services"
)

// PublisherFactory builds the publisher for a descriptor's publish settings
type PublisherFactory func(settings entities.PublishSettings, runID string) (gateways.Publisher, error)

// ReleaseStatus is the outcome of a pipeline run
type ReleaseStatus string

// Run outcomes
const (
	StatusSucceeded        ReleaseStatus = "succeeded"
	StatusRetryableFailure ReleaseStatus = "retryable_failure"
	StatusFatalFailure     ReleaseStatus = "fatal_failure"
)

// ReleaseOrchestratorConfig holds configuration for the orchestrator
type ReleaseOrchestratorConfig struct {
	OutputDir   string // overrides the descriptor's output_dir
	Policy      string // overrides the descriptor's validation policy
	SkipPublish bool   // stop after signing
}

// ReleaseOrchestrator runs load, validate, compile, patch, package, sign
// and publish in order and stops at the first failure. It never retries.
type ReleaseOrchestrator struct {
	descriptors  repositories.DescriptorRepository
	patcher      *services.ManifestPatcher
	packager     gateways.Packager
	signer       gateways.Signer
	newPublisher PublisherFactory
	config       ReleaseOrchestratorConfig
	logger       interfaces.Logger
}

// NewReleaseOrchestrator creates a new release orchestrator
func NewReleaseOrchestrator(
	descriptors repositories.DescriptorRepository,
	packager gateways.Packager,
	signer gateways.Signer,
	newPublisher PublisherFactory,
	config ReleaseOrchestratorConfig,
	logger interfaces.Logger,
) *ReleaseOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &ReleaseOrchestrator{
		descriptors:  descriptors,
		patcher:      services.NewManifestPatcher(),
		packager:     packager,
		signer:       signer,
		newPublisher: newPublisher,
		config:       config,
		logger:       logger,
	}
}

// RunRequest describes one pipeline invocation
type RunRequest struct {
	DescriptorPath string
	Environment    entities.ReleaseEnvironment
	RunID          string
	Until          entities.Stage // last stage to run; empty runs everything
}

// ReleaseResult contains the result of a pipeline run
type ReleaseResult struct {
	Status         ReleaseStatus
	Stage          entities.Stage // failing stage, empty on success
	Err            error
	RunID          string
	Descriptor     *entities.Descriptor
	Policy         string
	Violations     []services.Violation
	Compiler       entities.CompilerSettings
	PluginXML      []byte
	JarManifest    []byte
	Artifact       *entities.Artifact
	Signed         *entities.SignedArtifact
	Published      *entities.PublishResult
	StageDurations map[entities.Stage]time.Duration
	TotalDuration  time.Duration
}

// Succeeded reports whether every requested stage completed
func (r *ReleaseResult) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// Run executes the pipeline. The returned error is the classified
// *entities.StageError also stored in the result.
func (o *ReleaseOrchestrator) Run(ctx context.Context, req RunRequest) (*ReleaseResult, error) {
	startTime := time.Now()
	result := &ReleaseResult{
		RunID:          req.RunID,
		StageDurations: make(map[entities.Stage]time.Duration),
	}
	defer func() { result.TotalDuration = time.Since(startTime) }()

	stages := []struct {
		stage entities.Stage
		run   func() error
	}{
		{entities.StageLoad, func() error { return o.load(ctx, req, result) }},
		{entities.StageValidate, func() error { return o.validate(result) }},
		{entities.StageCompile, func() error { return o.compile(result) }},
		{entities.StagePatch, func() error { return o.patch(result) }},
		{entities.StagePackage, func() error { return o.pack(ctx, result) }},
		{entities.StageSign, func() error { return o.sign(ctx, req, result) }},
		{entities.StagePublish, func() error { return o.publish(ctx, req, result) }},
	}

	for _, s := range stages {
		if s.stage == entities.StagePublish && o.config.SkipPublish {
			o.logger.Info("dry run, skipping publish", interfaces.F("run_id", req.RunID))
			break
		}

		stageStart := time.Now()
		err := s.run()
		result.StageDurations[s.stage] = time.Since(stageStart)
		if err != nil {
			return o.fail(result, s.stage, err)
		}
		o.logger.Debug("stage completed",
			interfaces.F("stage", string(s.stage)),
			interfaces.F("duration", result.StageDurations[s.stage].Round(time.Millisecond)))

		if s.stage == req.Until {
			break
		}
	}

	result.Status = StatusSucceeded
	return result, nil
}

func (o *ReleaseOrchestrator) fail(result *ReleaseResult, stage entities.Stage, err error) (*ReleaseResult, error) {
	var stageErr *entities.StageError
	if !errors.As(err, &stageErr) {
		stageErr = entities.Fatal(stage, err)
	}

	result.Stage = stageErr.Stage
	result.Err = stageErr
	if stageErr.Kind == entities.FailureRetryable {
		result.Status = StatusRetryableFailure
	} else {
		result.Status = StatusFatalFailure
	}
	return result, stageErr
}

func (o *ReleaseOrchestrator) load(ctx context.Context, req RunRequest, result *ReleaseResult) error {
	d, err := o.descriptors.Load(ctx, req.DescriptorPath)
	if err != nil {
		return fmt.Errorf("failed to load descriptor: %w", err)
	}
	result.Descriptor = d
	return nil
}

func (o *ReleaseOrchestrator) validate(result *ReleaseResult) error {
	d := result.Descriptor

	name := o.config.Policy
	if name == "" {
		name = d.Validation
	}
	policy, err := services.PolicyByName(name)
	if err != nil {
		return err
	}
	result.Policy = policy.Name()

	result.Violations = policy.Validate(d)
	if len(result.Violations) > 0 {
		msgs := make([]string, len(result.Violations))
		for i, v := range result.Violations {
			msgs[i] = v.String()
		}
		return fmt.Errorf("%w: %s", entities.ErrValidation, strings.Join(msgs, "; "))
	}

	// Forwarded untouched; only strict rejects it
	if !services.RangeIsConsistent(d.Compatibility) {
		o.logger.Warn("compatibility range is inverted",
			interfaces.F("since_build", d.Compatibility.SinceBuild),
			interfaces.F("until_build", d.Compatibility.UntilBuild))
	}
	return nil
}

func (o *ReleaseOrchestrator) compile(result *ReleaseResult) error {
	result.Compiler = services.ResolveCompilerSettings(result.Descriptor.LanguageLevel)
	return nil
}

func (o *ReleaseOrchestrator) patch(result *ReleaseResult) error {
	pluginXML, jarManifest, err := o.PrepareManifests(result.Descriptor, result.Compiler)
	if err != nil {
		return err
	}
	result.PluginXML = pluginXML
	result.JarManifest = jarManifest
	return nil
}

// PrepareManifests returns the patched plugin.xml, or a rendered one when
// the descriptor names none, and the jar manifest
func (o *ReleaseOrchestrator) PrepareManifests(d *entities.Descriptor, compiler entities.CompilerSettings) ([]byte, []byte, error) {
	m := entities.ManifestFromDescriptor(d)

	var pluginXML []byte
	if d.Plugin.PluginXML == "" {
		pluginXML = o.patcher.Render(m)
	} else {
		//nolint:gosec // G304: plugin.xml path comes from the descriptor
		base, err := os.ReadFile(resolve(d.BaseDir, d.Plugin.PluginXML))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read plugin.xml: %w", err)
		}
		pluginXML, err = o.patcher.Patch(base, m)
		if err != nil {
			return nil, nil, err
		}
	}

	return pluginXML, o.patcher.JarManifest(m, compiler), nil
}

func (o *ReleaseOrchestrator) pack(ctx context.Context, result *ReleaseResult) error {
	artifact, err := o.packager.PackageArtifact(ctx, gateways.PackageRequest{
		Descriptor:  result.Descriptor,
		PluginXML:   result.PluginXML,
		JarManifest: result.JarManifest,
		OutputDir:   o.OutputDir(result.Descriptor),
	})
	if err != nil {
		return err
	}
	result.Artifact = artifact
	o.logger.Info("artifact packaged",
		interfaces.F("path", artifact.Path),
		interfaces.F("sha256", artifact.Checksum))
	return nil
}

func (o *ReleaseOrchestrator) sign(ctx context.Context, req RunRequest, result *ReleaseResult) error {
	signed, err := o.signer.Sign(ctx, result.Artifact, req.Environment.Signing)
	if err != nil {
		return err
	}
	result.Signed = signed
	o.logger.Info("artifact signed",
		interfaces.F("signature", signed.SignaturePath),
		interfaces.F("fingerprint", signed.SignerFingerprint))
	return nil
}

func (o *ReleaseOrchestrator) publish(ctx context.Context, req RunRequest, result *ReleaseResult) error {
	publisher, err := o.newPublisher(result.Descriptor.Publish, req.RunID)
	if err != nil {
		return err
	}
	published, err := publisher.Publish(ctx, result.Signed, req.Environment.Publish)
	if err != nil {
		return err
	}
	result.Published = published
	o.logger.Info("artifact published",
		interfaces.F("target", published.Target),
		interfaces.F("location", published.Location),
		interfaces.F("run_id", published.RunID))
	return nil
}

// OutputDir is where archives for d are written
func (o *ReleaseOrchestrator) OutputDir(d *entities.Descriptor) string {
	if o.config.OutputDir != "" {
		return o.config.OutputDir
	}
	if d.OutputDir != "" {
		return resolve(d.BaseDir, d.OutputDir)
	}
	return resolve(d.BaseDir, "dist")
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}

// Summary returns a human-readable summary of the run
func (r *ReleaseResult) Summary() string {
	if !r.Succeeded() {
		return fmt.Sprintf("Release failed at %s (%s): %v", r.Stage, r.Status, r.Err)
	}

	var b strings.Builder
	b.WriteString("Release successful!\n")
	if r.Artifact != nil {
		fmt.Fprintf(&b, "Artifact: %s\n", r.Artifact.Path)
	}
	if r.Signed != nil {
		fmt.Fprintf(&b, "Signature: %s\n", r.Signed.SignaturePath)
	}
	if r.Published != nil {
		fmt.Fprintf(&b, "Published: %s\n", r.Published.Location)
	}
	fmt.Fprintf(&b, "Total: %v", r.TotalDuration.Round(time.Millisecond))
	return b.String()
}
