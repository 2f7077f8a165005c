package yaml

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorRepository_Load_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "release.yaml")
	require.NoError(t, os.WriteFile(path, []byte(referenceYAML), 0600))

	d, err := NewDescriptorRepository().Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "com.intellij.plugin", d.Identity.Group)
}

func TestDescriptorRepository_Load_DiscoversInDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugship.jsonc"),
		[]byte(`{"group": "from-jsonc", "version": "2"}`), 0600))

	d, err := NewDescriptorRepository().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "from-jsonc", d.Identity.Group)
	assert.Equal(t, dir, d.BaseDir)

	// YAML wins when both exist
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugship.yml"), []byte("group: from-yaml\n"), 0600))
	d, err = NewDescriptorRepository().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "from-yaml", d.Identity.Group)
}

func TestDescriptorRepository_Load_NotFound(t *testing.T) {
	repo := NewDescriptorRepository()

	_, err := repo.Load(context.Background(), filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	_, err = repo.Load(context.Background(), t.TempDir())
	assert.Error(t, err)
}
