package entities

// Edition identifies the host platform distribution a plugin targets
type Edition string

// Known platform editions
const (
	EditionCommunity Edition = "IC"
	EditionUltimate  Edition = "IU"
)

// ProjectIdentity identifies the produced artifact
type ProjectIdentity struct {
	Group   string
	Version string
}

// PlatformTarget declares which host platform the artifact is built against
type PlatformTarget struct {
	Version         string
	Edition         Edition
	RequiredPlugins []string
}

// CompatibilityRange bounds the host builds allowed to load the artifact.
// UntilBuild may end in ".*" to accept any build under that prefix.
type CompatibilityRange struct {
	SinceBuild string
	UntilBuild string
}

// CompilerSettings holds the language levels handed to the compiler
type CompilerSettings struct {
	SourceCompatibility string
	TargetCompatibility string
}

// PluginSettings locates the plugin sources that get packaged
type PluginSettings struct {
	ID         string
	Name       string
	PluginXML  string // path to a base plugin.xml, relative to BaseDir
	ContentDir string // directory packaged under lib/, relative to BaseDir
}

// PublishSettings configures the distribution endpoint
type PublishSettings struct {
	Target   string // "marketplace" or "s3"
	URL      string
	PluginID string
	Channel  string

	// S3-compatible custom repository
	Endpoint  string
	Bucket    string
	Region    string
	Prefix    string
	PublicURL string
	Insecure  bool
}

// Publish targets
const (
	PublishTargetMarketplace = "marketplace"
	PublishTargetS3          = "s3"
)

// Descriptor is the static declaration of plugin identity and platform targeting
type Descriptor struct {
	Identity      ProjectIdentity
	Platform      PlatformTarget
	LanguageLevel string
	Compatibility CompatibilityRange
	Plugin        PluginSettings
	Publish       PublishSettings
	Validation    string // "strict" or "permissive"
	OutputDir     string
	BaseDir       string // directory the descriptor was loaded from
}

// ReferenceDescriptor returns the values of the reference plugin build
func ReferenceDescriptor() *Descriptor {
	return &Descriptor{
		Identity: ProjectIdentity{
			Group:   "com.intellij.plugin",
			Version: "1.0-SNAPSHOT",
		},
		Platform: PlatformTarget{
			Version:         "2023.2.5",
			Edition:         EditionCommunity,
			RequiredPlugins: []string{},
		},
		LanguageLevel: "17",
		Compatibility: CompatibilityRange{
			SinceBuild: "232",
			UntilBuild: "241.*",
		},
		Publish: PublishSettings{
			Target: PublishTargetMarketplace,
			URL:    "https://plugins.jetbrains.com",
		},
		Validation: "permissive",
		OutputDir:  "dist",
	}
}
