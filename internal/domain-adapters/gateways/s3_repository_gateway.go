package gateways

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ochairo/plugship/internal/domain/entities"
	"github.com/ochairo/plugship/internal/domain/interfaces"
	"github.com/ochairo/plugship/internal/external-adapters/environment"
	"github.com/ochairo/plugship/internal/external-adapters/s3"
)

// UpdatePluginsKey is the repository index read by the IDE's custom plugin repository support
const UpdatePluginsKey = "updatePlugins.xml"

// ObjectStore is the subset of object storage the repository publisher needs
type ObjectStore interface {
	PutFile(ctx context.Context, key, path, contentType string, metadata map[string]string) error
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// StoreFactory opens an object store with the given access key pair
type StoreFactory func(accessKey, secretKey string) (ObjectStore, error)

// S3RepositoryGateway publishes into a custom plugin repository hosted on
// S3-compatible storage
type S3RepositoryGateway struct {
	settings entities.PublishSettings
	runID    string
	newStore StoreFactory
	logger   interfaces.Logger
	now      func() time.Time
}

// NewS3RepositoryGateway creates a repository publisher backed by minio-go
func NewS3RepositoryGateway(settings entities.PublishSettings, runID string, logger interfaces.Logger) *S3RepositoryGateway {
	factory := func(accessKey, secretKey string) (ObjectStore, error) {
		return s3.NewStore(s3.Config{
			Endpoint: settings.Endpoint,
			Bucket:   settings.Bucket,
			Region:   settings.Region,
			Secure:   !settings.Insecure,
		}, accessKey, secretKey)
	}
	return NewS3RepositoryGatewayWithStore(settings, runID, factory, logger)
}

// NewS3RepositoryGatewayWithStore creates a repository publisher over a custom store
func NewS3RepositoryGatewayWithStore(settings entities.PublishSettings, runID string, factory StoreFactory, logger interfaces.Logger) *S3RepositoryGateway {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &S3RepositoryGateway{
		settings: settings,
		runID:    runID,
		newStore: factory,
		logger:   logger,
		now:      time.Now,
	}
}

// Publish uploads the archive and its signature, then adds the release to updatePlugins.xml
func (g *S3RepositoryGateway) Publish(ctx context.Context, signed *entities.SignedArtifact, credential entities.PublishCredential) (*entities.PublishResult, error) {
	if credential.Token == "" {
		return nil, entities.Fatal(entities.StagePublish, entities.MissingSecret(environment.EnvPublishToken))
	}
	accessKey, secretKey, ok := strings.Cut(credential.Token, ":")
	if !ok || accessKey == "" || secretKey == "" {
		return nil, entities.Fatal(entities.StagePublish,
			fmt.Errorf("%s must have the form ACCESS_KEY:SECRET_KEY", environment.EnvPublishToken))
	}
	if signed == nil || signed.Artifact.Path == "" {
		return nil, entities.Fatal(entities.StagePublish, fmt.Errorf("no artifact to publish"))
	}

	pluginID := signed.Artifact.PluginID
	if pluginID == "" {
		pluginID = g.settings.PluginID
	}
	if pluginID == "" {
		return nil, entities.Fatal(entities.StagePublish, fmt.Errorf("plugin id is required for a custom repository"))
	}

	store, err := g.newStore(accessKey, secretKey)
	if err != nil {
		return nil, entities.Fatal(entities.StagePublish, err)
	}

	metadata := map[string]string{
		"plugin-id": pluginID,
		"version":   signed.Artifact.Version,
	}
	if g.runID != "" {
		metadata["run-id"] = g.runID
	}

	archiveKey := g.key(filepath.Base(signed.Artifact.Path))
	if err := store.PutFile(ctx, archiveKey, signed.Artifact.Path, "application/zip", metadata); err != nil {
		return nil, classifyStoreError(err)
	}
	if signed.SignaturePath != "" {
		sigKey := g.key(filepath.Base(signed.SignaturePath))
		if err := store.PutFile(ctx, sigKey, signed.SignaturePath, "application/pgp-signature", metadata); err != nil {
			return nil, classifyStoreError(err)
		}
	}

	location := g.location(archiveKey)

	indexKey := g.key(UpdatePluginsKey)
	current, err := store.Get(ctx, indexKey)
	if err != nil && !errors.Is(err, s3.ErrNotFound) {
		return nil, classifyStoreError(err)
	}

	index, err := MergeUpdatePlugins(current, UpdatePluginEntry{
		ID:         pluginID,
		URL:        location,
		Version:    signed.Artifact.Version,
		SinceBuild: signed.Artifact.Compatibility.SinceBuild,
		UntilBuild: signed.Artifact.Compatibility.UntilBuild,
	})
	if err != nil {
		return nil, entities.Fatal(entities.StagePublish, err)
	}
	if err := store.Put(ctx, indexKey, index, "application/xml", metadata); err != nil {
		return nil, classifyStoreError(err)
	}

	g.logger.Debug("repository index updated",
		interfaces.F("bucket", g.settings.Bucket),
		interfaces.F("key", indexKey))

	return &entities.PublishResult{
		Target:      entities.PublishTargetS3,
		PluginID:    pluginID,
		Version:     signed.Artifact.Version,
		Location:    location,
		RunID:       g.runID,
		PublishedAt: g.now().UTC(),
	}, nil
}

func (g *S3RepositoryGateway) key(name string) string {
	return path.Join(strings.Trim(g.settings.Prefix, "/"), name)
}

func (g *S3RepositoryGateway) location(key string) string {
	if g.settings.PublicURL != "" {
		return strings.TrimRight(g.settings.PublicURL, "/") + "/" + key
	}
	return fmt.Sprintf("s3://%s/%s", g.settings.Bucket, key)
}

func classifyStoreError(err error) error {
	if errors.Is(err, s3.ErrAccessDenied) {
		return entities.Fatal(entities.StagePublish, err)
	}
	return entities.Retryable(entities.StagePublish, err)
}

// UpdatePluginEntry is one release listed in updatePlugins.xml
type UpdatePluginEntry struct {
	ID         string
	URL        string
	Version    string
	SinceBuild string
	UntilBuild string
}

type updatePluginsXML struct {
	XMLName xml.Name          `xml:"plugins"`
	Plugins []updatePluginXML `xml:"plugin"`
}

type updatePluginXML struct {
	ID          string          `xml:"id,attr"`
	URL         string          `xml:"url,attr"`
	Version     string          `xml:"version,attr"`
	IdeaVersion *ideaVersionXML `xml:"idea-version,omitempty"`
}

type ideaVersionXML struct {
	SinceBuild string `xml:"since-build,attr,omitempty"`
	UntilBuild string `xml:"until-build,attr,omitempty"`
}

// MergeUpdatePlugins adds entry to an existing index, replacing a listing
// with the same id and version. Empty current starts a new index.
func MergeUpdatePlugins(current []byte, entry UpdatePluginEntry) ([]byte, error) {
	var index updatePluginsXML
	if len(strings.TrimSpace(string(current))) > 0 {
		if err := xml.Unmarshal(current, &index); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", UpdatePluginsKey, err)
		}
	}

	listing := updatePluginXML{ID: entry.ID, URL: entry.URL, Version: entry.Version}
	if entry.SinceBuild != "" || entry.UntilBuild != "" {
		listing.IdeaVersion = &ideaVersionXML{SinceBuild: entry.SinceBuild, UntilBuild: entry.UntilBuild}
	}

	replaced := false
	for i, p := range index.Plugins {
		if p.ID == entry.ID && p.Version == entry.Version {
			index.Plugins[i] = listing
			replaced = true
		}
	}
	if !replaced {
		index.Plugins = append(index.Plugins, listing)
	}

	out, err := xml.MarshalIndent(index, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", UpdatePluginsKey, err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}
