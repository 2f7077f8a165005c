// Package yaml provides YAML-based descriptor parsing and repository implementations.
package yaml

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/ochairo/plugship/internal/domain/entities"
)

// Format identifies the syntax of a descriptor document
type Format string

// Supported descriptor formats
const (
	FormatYAML  Format = "yaml"
	FormatJSONC Format = "jsonc"
)

// yamlDescriptor represents the raw YAML structure
type yamlDescriptor struct {
	Group         string            `yaml:"group"`
	Version       string            `yaml:"version"`
	Plugin        yamlPlugin        `yaml:"plugin"`
	Platform      yamlPlatform      `yaml:"platform"`
	Java          string            `yaml:"java"`
	Compatibility yamlCompatibility `yaml:"compatibility"`
	Publish       yamlPublish       `yaml:"publish"`
	Validation    string            `yaml:"validation"`
	OutputDir     string            `yaml:"output_dir"`
}

type yamlPlugin struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	PluginXML  string `yaml:"plugin_xml"`
	ContentDir string `yaml:"content"`
}

type yamlPlatform struct {
	Version string   `yaml:"version"`
	Type    string   `yaml:"type"`
	Plugins []string `yaml:"plugins"`
}

type yamlCompatibility struct {
	SinceBuild string `yaml:"since_build"`
	UntilBuild string `yaml:"until_build"`
}

type yamlPublish struct {
	Target    string `yaml:"target"`
	URL       string `yaml:"url"`
	PluginID  string `yaml:"plugin_id"`
	Channel   string `yaml:"channel"`
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	PublicURL string `yaml:"public_url"`
	Insecure  bool   `yaml:"insecure"`
}

// DescriptorParser parses release descriptor files
type DescriptorParser struct{}

// NewDescriptorParser creates a new descriptor parser
func NewDescriptorParser() *DescriptorParser {
	return &DescriptorParser{}
}

// FormatForPath picks the document format from a file extension
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return FormatYAML, nil
	case ".json", ".jsonc":
		return FormatJSONC, nil
	default:
		return "", fmt.Errorf("unsupported descriptor extension %q", filepath.Ext(path))
	}
}

// ParseFile parses a descriptor file; BaseDir is set to its directory
func (p *DescriptorParser) ParseFile(filePath string) (*entities.Descriptor, error) {
	format, err := FormatForPath(filePath)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // G304: filePath is the descriptor path chosen by the user
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	def, err := p.Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	def.BaseDir = filepath.Dir(filePath)
	return def, nil
}

// Parse parses descriptor bytes. Values are copied verbatim; checking them
// is the job of a validation policy.
func (p *DescriptorParser) Parse(data []byte, format Format) (*entities.Descriptor, error) {
	if format == FormatJSONC {
		// JSON is a subset of YAML once comments and trailing commas are gone
		data = jsonc.ToJSON(data)
	}

	var raw yamlDescriptor
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor: %w", err)
	}

	plugins := raw.Platform.Plugins
	if plugins == nil {
		plugins = []string{}
	}

	return &entities.Descriptor{
		Identity: entities.ProjectIdentity{
			Group:   raw.Group,
			Version: raw.Version,
		},
		Platform: entities.PlatformTarget{
			Version:         raw.Platform.Version,
			Edition:         entities.Edition(raw.Platform.Type),
			RequiredPlugins: plugins,
		},
		LanguageLevel: raw.Java,
		Compatibility: entities.CompatibilityRange{
			SinceBuild: raw.Compatibility.SinceBuild,
			UntilBuild: raw.Compatibility.UntilBuild,
		},
		Plugin:     convertPlugin(raw.Plugin),
		Publish:    convertPublish(raw.Publish),
		Validation: raw.Validation,
		OutputDir:  raw.OutputDir,
	}, nil
}

func convertPlugin(yp yamlPlugin) entities.PluginSettings {
	return entities.PluginSettings{
		ID:         yp.ID,
		Name:       yp.Name,
		PluginXML:  yp.PluginXML,
		ContentDir: yp.ContentDir,
	}
}

func convertPublish(yp yamlPublish) entities.PublishSettings {
	return entities.PublishSettings{
		Target:    yp.Target,
		URL:       yp.URL,
		PluginID:  yp.PluginID,
		Channel:   yp.Channel,
		Endpoint:  yp.Endpoint,
		Bucket:    yp.Bucket,
		Region:    yp.Region,
		Prefix:    yp.Prefix,
		PublicURL: yp.PublicURL,
		Insecure:  yp.Insecure,
	}
}

// Marshal renders a descriptor back to YAML
func Marshal(d *entities.Descriptor) ([]byte, error) {
	raw := yamlDescriptor{
		Group:   d.Identity.Group,
		Version: d.Identity.Version,
		Plugin: yamlPlugin{
			ID:         d.Plugin.ID,
			Name:       d.Plugin.Name,
			PluginXML:  d.Plugin.PluginXML,
			ContentDir: d.Plugin.ContentDir,
		},
		Platform: yamlPlatform{
			Version: d.Platform.Version,
			Type:    string(d.Platform.Edition),
			Plugins: d.Platform.RequiredPlugins,
		},
		Java: d.LanguageLevel,
		Compatibility: yamlCompatibility{
			SinceBuild: d.Compatibility.SinceBuild,
			UntilBuild: d.Compatibility.UntilBuild,
		},
		Publish: yamlPublish{
			Target:    d.Publish.Target,
			URL:       d.Publish.URL,
			PluginID:  d.Publish.PluginID,
			Channel:   d.Publish.Channel,
			Endpoint:  d.Publish.Endpoint,
			Bucket:    d.Publish.Bucket,
			Region:    d.Publish.Region,
			Prefix:    d.Publish.Prefix,
			PublicURL: d.Publish.PublicURL,
			Insecure:  d.Publish.Insecure,
		},
		Validation: d.Validation,
		OutputDir:  d.OutputDir,
	}
	return yaml.Marshal(&raw)
}
