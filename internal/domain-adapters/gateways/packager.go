package gateways

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ochairo/plugship/internal/domain/entities"
	"github.com/ochairo/plugship/internal/domain/interfaces/gateways"
	"github.com/ochairo/plugship/internal/domain/services"
)

// Archive entries written by the packager, relative to the plugin root folder
const (
	PluginXMLEntry   = "META-INF/plugin.xml"
	JarManifestEntry = "META-INF/MANIFEST.MF"
	libDir           = "lib"
)

// Packager zips plugin content into a distributable archive
type Packager struct {
	checksums *checksumVerifier
}

// NewPackager creates a new packager
func NewPackager() *Packager {
	return &Packager{checksums: NewChecksumVerifier()}
}

// PackageArtifact writes <name>-<version>.zip and its .sha256 sidecar.
// The archive holds a single <name>/ folder with the content directory
// under lib/ and the patched manifests under META-INF/.
func (p *Packager) PackageArtifact(ctx context.Context, req gateways.PackageRequest) (*entities.Artifact, error) {
	d := req.Descriptor
	if d == nil {
		return nil, fmt.Errorf("descriptor is required")
	}
	if len(req.PluginXML) == 0 {
		return nil, fmt.Errorf("plugin.xml is required")
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = "dist"
	}
	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	root := services.ArtifactBaseName(d)
	archivePath := filepath.Join(outputDir, services.ArchiveName(d))

	contentDir := ""
	if d.Plugin.ContentDir != "" {
		contentDir = d.Plugin.ContentDir
		if !filepath.IsAbs(contentDir) {
			contentDir = filepath.Join(d.BaseDir, contentDir)
		}
	}

	if err := p.createZip(ctx, archivePath, root, contentDir, outputDir, req); err != nil {
		_ = os.Remove(archivePath)
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}

	sum, err := p.checksums.WriteChecksumFile(archivePath)
	if err != nil {
		return nil, err
	}

	return &entities.Artifact{
		Name:          root,
		Version:       d.Identity.Version,
		Path:          archivePath,
		Type:          entities.ArtifactTypeArchive,
		PluginID:      d.Plugin.ID,
		Checksum:      sum,
		Compatibility: d.Compatibility,
	}, nil
}

func (p *Packager) createZip(ctx context.Context, archivePath, root, contentDir, outputDir string, req gateways.PackageRequest) error {
	//nolint:gosec // G304: archivePath is constructed for package output
	file, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create archive file: %w", err)
	}
	//nolint:errcheck // Defer close, explicit close below reports errors
	defer file.Close()

	zw := zip.NewWriter(file)

	if contentDir != "" {
		skip := releaseOutputFilter(outputDir, root)
		if err := p.addDir(ctx, zw, contentDir, path.Join(root, libDir), skip); err != nil {
			_ = zw.Close()
			return err
		}
	}

	if err := addBytes(zw, path.Join(root, PluginXMLEntry), req.PluginXML); err != nil {
		_ = zw.Close()
		return err
	}
	if len(req.JarManifest) > 0 {
		if err := addBytes(zw, path.Join(root, JarManifestEntry), req.JarManifest); err != nil {
			_ = zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return file.Close()
}

// releaseOutputFilter reports paths that belong to the release output:
// the output directory itself when nested in the content directory, and
// archives with their sidecars when both directories are the same
func releaseOutputFilter(outputDir, root string) func(filePath string, isDir bool) bool {
	out, err := filepath.Abs(outputDir)
	if err != nil {
		out = filepath.Clean(outputDir)
	}
	return func(filePath string, isDir bool) bool {
		abs, err := filepath.Abs(filePath)
		if err != nil {
			return false
		}
		if isDir {
			return abs == out
		}
		if filepath.Dir(abs) != out {
			return false
		}
		name := strings.TrimSuffix(strings.TrimSuffix(filepath.Base(abs), services.SignatureSuffix), services.ChecksumSuffix)
		return strings.HasPrefix(name, root+"-") && strings.HasSuffix(name, services.ArchiveSuffix)
	}
}

// addDir copies every regular file below dir into the archive under prefix.
// Paths for which skip returns true are left out.
func (p *Packager) addDir(ctx context.Context, zw *zip.Writer, dir, prefix string, skip func(filePath string, isDir bool) bool) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("failed to stat content directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("content path is not a directory: %s", dir)
	}

	return filepath.WalkDir(dir, func(filePath string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if filePath != dir && skip(filePath, entry.IsDir()) {
			if entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		// Symlinks and devices are not part of a plugin layout
		if !entry.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(dir, filePath)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}

		fi, err := entry.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(fi)
		if err != nil {
			return fmt.Errorf("failed to create zip header: %w", err)
		}
		header.Name = path.Join(prefix, filepath.ToSlash(relPath))
		header.Method = zip.Deflate

		w, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("failed to write zip header: %w", err)
		}

		//nolint:gosec // G304: File path from filepath.WalkDir for packaging
		src, err := os.Open(filePath)
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		//nolint:errcheck // Defer close on read-only file
		defer src.Close()

		if _, err := io.Copy(w, src); err != nil {
			return fmt.Errorf("failed to write file to zip: %w", err)
		}
		return nil
	})
}

func addBytes(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("failed to write zip header: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
