package gateways

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/plugship/internal/domain/entities"
)

func signedArtifact(t *testing.T) *entities.SignedArtifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo-1.0.zip")
	require.NoError(t, os.WriteFile(path, []byte("zip bytes"), 0600))
	require.NoError(t, os.WriteFile(path+".asc", []byte("-----BEGIN PGP SIGNATURE-----"), 0600))
	return &entities.SignedArtifact{
		Artifact: entities.Artifact{
			Name: "demo", Version: "1.0", Path: path, Type: entities.ArtifactTypeSigned,
			PluginID:      "com.example.demo",
			Compatibility: entities.CompatibilityRange{SinceBuild: "232", UntilBuild: "241.*"},
		},
		SignaturePath: path + ".asc",
	}
}

func TestMarketplaceGateway_Publish_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/plugin/uploadPlugin", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "run-42", r.Header.Get("X-Request-Id"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "com.example.demo", r.FormValue("xmlId"))
		assert.Empty(t, r.FormValue("pluginId"))
		assert.Equal(t, "eap", r.FormValue("channel"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "demo-1.0.zip", header.Filename)
		assert.Equal(t, "zip bytes", string(data))

		sig, sigHeader, err := r.FormFile("signature")
		require.NoError(t, err)
		defer sig.Close()
		sigData, _ := io.ReadAll(sig)
		assert.Equal(t, "demo-1.0.zip.asc", sigHeader.Filename)
		assert.Equal(t, "-----BEGIN PGP SIGNATURE-----", string(sigData))

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	gw := NewHTTPMarketplaceGateway(entities.PublishSettings{URL: server.URL + "/", Channel: "eap"}, "run-42", nil)
	result, err := gw.Publish(context.Background(), signedArtifact(t), entities.PublishCredential{Token: "secret-token"})
	require.NoError(t, err)

	assert.Equal(t, entities.PublishTargetMarketplace, result.Target)
	assert.Equal(t, "com.example.demo", result.PluginID)
	assert.Equal(t, "1.0", result.Version)
	assert.Equal(t, "run-42", result.RunID)
	assert.Equal(t, server.URL+"/plugin/com.example.demo", result.Location)
	assert.False(t, result.PublishedAt.IsZero())
}

func TestMarketplaceGateway_NumericPluginID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "12345", r.FormValue("pluginId"))
		assert.Empty(t, r.FormValue("xmlId"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	gw := NewHTTPMarketplaceGateway(entities.PublishSettings{URL: server.URL, PluginID: "12345"}, "", nil)
	result, err := gw.Publish(context.Background(), signedArtifact(t), entities.PublishCredential{Token: "t"})
	require.NoError(t, err)
	assert.Equal(t, "12345", result.PluginID)
}

func TestMarketplaceGateway_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		kind   entities.FailureKind
	}{
		{http.StatusBadRequest, entities.FailureFatal},
		{http.StatusUnauthorized, entities.FailureFatal},
		{http.StatusForbidden, entities.FailureFatal},
		{http.StatusNotFound, entities.FailureFatal},
		{http.StatusConflict, entities.FailureFatal},
		{http.StatusUnprocessableEntity, entities.FailureFatal},
		{http.StatusRequestTimeout, entities.FailureRetryable},
		{http.StatusTooManyRequests, entities.FailureRetryable},
		{http.StatusInternalServerError, entities.FailureRetryable},
		{http.StatusBadGateway, entities.FailureRetryable},
		{http.StatusServiceUnavailable, entities.FailureRetryable},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"msg":"nope"}`))
			}))
			defer server.Close()

			gw := NewHTTPMarketplaceGateway(entities.PublishSettings{URL: server.URL}, "", nil)
			_, err := gw.Publish(context.Background(), signedArtifact(t), entities.PublishCredential{Token: "t"})
			require.Error(t, err)

			var stageErr *entities.StageError
			require.True(t, errors.As(err, &stageErr))
			assert.Equal(t, entities.StagePublish, stageErr.Stage)
			assert.Equal(t, tt.kind, stageErr.Kind)
			assert.Contains(t, err.Error(), "nope")
			assert.Equal(t, int32(1), calls.Load(), "publisher must not retry")
		})
	}
}

func TestMarketplaceGateway_RetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	gw := NewHTTPMarketplaceGateway(entities.PublishSettings{URL: server.URL}, "", nil)
	_, err := gw.Publish(context.Background(), signedArtifact(t), entities.PublishCredential{Token: "t"})

	var stageErr *entities.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, 7*time.Second, stageErr.RetryAfter)
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Duration(0), retryAfter("", now))
	assert.Equal(t, 3*time.Second, retryAfter("3", now))
	assert.Equal(t, 90*time.Second, retryAfter(now.Add(90*time.Second).Format(http.TimeFormat), now))
	assert.Equal(t, time.Duration(0), retryAfter("soon", now))
}

func TestMarketplaceGateway_TransportErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	gw := NewHTTPMarketplaceGateway(entities.PublishSettings{URL: url}, "", nil)
	_, err := gw.Publish(context.Background(), signedArtifact(t), entities.PublishCredential{Token: "t"})
	require.Error(t, err)
	assert.True(t, entities.IsRetryable(err))
}

func TestMarketplaceGateway_MissingToken(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	gw := NewHTTPMarketplaceGateway(entities.PublishSettings{URL: server.URL}, "", nil)
	_, err := gw.Publish(context.Background(), signedArtifact(t), entities.PublishCredential{})
	require.Error(t, err)
	assert.ErrorIs(t, err, entities.ErrMissingSecret)
	assert.Contains(t, err.Error(), "PUBLISH_TOKEN")
	assert.False(t, entities.IsRetryable(err))
	assert.Equal(t, int32(0), calls.Load())
}

func TestNewPublisher(t *testing.T) {
	p, err := NewPublisher(entities.PublishSettings{}, "", nil)
	require.NoError(t, err)
	assert.IsType(t, &HTTPMarketplaceGateway{}, p)

	p, err = NewPublisher(entities.PublishSettings{Target: "s3", Endpoint: "localhost:9000", Bucket: "plugins"}, "", nil)
	require.NoError(t, err)
	assert.IsType(t, &S3RepositoryGateway{}, p)

	_, err = NewPublisher(entities.PublishSettings{Target: "s3"}, "", nil)
	assert.Error(t, err)

	_, err = NewPublisher(entities.PublishSettings{Target: "ftp"}, "", nil)
	assert.Error(t, err)
}

func TestMarketplaceGateway_RequiresSignature(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	gw := NewHTTPMarketplaceGateway(entities.PublishSettings{URL: server.URL}, "", nil)

	unsigned := signedArtifact(t)
	unsigned.SignaturePath = ""
	_, err := gw.Publish(context.Background(), unsigned, entities.PublishCredential{Token: "t"})
	require.Error(t, err)
	assert.False(t, entities.IsRetryable(err))

	missing := signedArtifact(t)
	require.NoError(t, os.Remove(missing.SignaturePath))
	_, err = gw.Publish(context.Background(), missing, entities.PublishCredential{Token: "t"})
	require.Error(t, err)
	assert.False(t, entities.IsRetryable(err))
	assert.Contains(t, err.Error(), "signature")

	assert.Equal(t, int32(0), calls.Load())
}
