package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ochairo/plugship/internal/domain/entities"
	"github.com/ochairo/plugship/internal/domain/interfaces"
	"github.com/ochairo/plugship/internal/external-adapters/environment"
)

const (
	// DefaultMarketplaceURL is the public plugin marketplace
	DefaultMarketplaceURL = "https://plugins.jetbrains.com"

	uploadPath      = "/plugin/uploadPlugin"
	maxErrorBody    = 4 << 10
	requestIDHeader = "X-Request-Id"
)

// HTTPMarketplaceGateway uploads plugin archives to a marketplace over HTTP.
// It makes one request per Publish call.
type HTTPMarketplaceGateway struct {
	client    *http.Client
	baseURL   string
	pluginID  string
	channel   string
	runID     string
	userAgent string
	logger    interfaces.Logger
	now       func() time.Time
}

// NewHTTPMarketplaceGateway creates a marketplace publisher for settings
func NewHTTPMarketplaceGateway(settings entities.PublishSettings, runID string, logger interfaces.Logger) *HTTPMarketplaceGateway {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	baseURL := settings.URL
	if baseURL == "" {
		baseURL = DefaultMarketplaceURL
	}
	return &HTTPMarketplaceGateway{
		client: &http.Client{
			Timeout: 5 * time.Minute, // Large archive uploads
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		pluginID:  settings.PluginID,
		channel:   settings.Channel,
		runID:     runID,
		userAgent: "plugship/1.0",
		logger:    logger,
		now:       time.Now,
	}
}

// classifyStatus maps an HTTP status onto a failure kind; ok is true for 2xx
func classifyStatus(statusCode int) (kind entities.FailureKind, ok bool) {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return entities.FailureFatal, true
	case statusCode == http.StatusRequestTimeout, // 408
		statusCode == http.StatusTooManyRequests, // 429
		statusCode >= 500:
		return entities.FailureRetryable, false
	default:
		// 400, 401, 403, 404, 409, 422 and anything else unexpected
		return entities.FailureFatal, false
	}
}

// retryAfter parses a Retry-After header given in seconds or as an HTTP date
func retryAfter(header string, now time.Time) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// Publish uploads the archive together with its detached signature
func (g *HTTPMarketplaceGateway) Publish(ctx context.Context, signed *entities.SignedArtifact, credential entities.PublishCredential) (*entities.PublishResult, error) {
	if credential.Token == "" {
		return nil, entities.Fatal(entities.StagePublish, entities.MissingSecret(environment.EnvPublishToken))
	}
	if signed == nil || signed.Artifact.Path == "" {
		return nil, entities.Fatal(entities.StagePublish, fmt.Errorf("no artifact to publish"))
	}
	if signed.SignaturePath == "" {
		return nil, entities.Fatal(entities.StagePublish, fmt.Errorf("artifact %s is not signed", signed.Artifact.Path))
	}

	idField, idValue := "pluginId", g.pluginID
	if idValue == "" {
		idField, idValue = "xmlId", signed.Artifact.PluginID
	}
	if idValue == "" {
		return nil, entities.Fatal(entities.StagePublish, fmt.Errorf("plugin id is required for marketplace upload"))
	}

	body, contentType, err := g.uploadBody(signed, idField, idValue)
	if err != nil {
		return nil, entities.Fatal(entities.StagePublish, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+uploadPath, body)
	if err != nil {
		return nil, entities.Fatal(entities.StagePublish, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("Authorization", "Bearer "+credential.Token)
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Content-Type", contentType)
	if g.runID != "" {
		req.Header.Set(requestIDHeader, g.runID)
	}
	req.ContentLength = int64(body.Len())

	g.logger.Debug("uploading to marketplace",
		interfaces.F("url", req.URL.String()),
		interfaces.F(idField, idValue),
		interfaces.F("run_id", g.runID))

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, entities.Fatal(entities.StagePublish, fmt.Errorf("upload canceled: %w", err))
		}
		// Network errors are retryable
		return nil, entities.Retryable(entities.StagePublish, fmt.Errorf("failed to upload plugin: %w", err))
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	kind, ok := classifyStatus(resp.StatusCode)
	if !ok {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		stageErr := &entities.StageError{
			Stage:      entities.StagePublish,
			Kind:       kind,
			RetryAfter: retryAfter(resp.Header.Get("Retry-After"), g.now()),
			Err: fmt.Errorf("failed to upload plugin: status %d: %s",
				resp.StatusCode, strings.TrimSpace(string(bodyBytes))),
		}
		return nil, stageErr
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	location := resp.Header.Get("Location")
	if location == "" {
		location = fmt.Sprintf("%s/plugin/%s", g.baseURL, idValue)
	}

	return &entities.PublishResult{
		Target:      entities.PublishTargetMarketplace,
		PluginID:    idValue,
		Version:     signed.Artifact.Version,
		Location:    location,
		RunID:       g.runID,
		PublishedAt: g.now().UTC(),
	}, nil
}

// uploadBody builds the multipart form in memory so the request has a known length
func (g *HTTPMarketplaceGateway) uploadBody(signed *entities.SignedArtifact, idField, idValue string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField(idField, idValue); err != nil {
		return nil, "", fmt.Errorf("failed to write form field: %w", err)
	}
	if g.channel != "" {
		if err := mw.WriteField("channel", g.channel); err != nil {
			return nil, "", fmt.Errorf("failed to write form field: %w", err)
		}
	}
	if err := addFormFile(mw, "file", signed.Artifact.Path); err != nil {
		return nil, "", fmt.Errorf("failed to attach artifact: %w", err)
	}
	if err := addFormFile(mw, "signature", signed.SignaturePath); err != nil {
		return nil, "", fmt.Errorf("failed to attach signature: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize form: %w", err)
	}

	return &buf, mw.FormDataContentType(), nil
}

func addFormFile(mw *multipart.Writer, field, path string) error {
	//nolint:gosec // G304: path is the signed artifact or its signature
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	part, err := mw.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f)
	return err
}
