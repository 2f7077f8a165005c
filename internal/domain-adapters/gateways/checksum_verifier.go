package gateways

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochairo/plugship/internal/domain/services"
)

// checksumVerifier implements checksum verification using pure Go
type checksumVerifier struct{}

// NewChecksumVerifier creates a new checksum verifier
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewChecksumVerifier() *checksumVerifier {
	return &checksumVerifier{}
}

// VerifyChecksum verifies a file's SHA256 checksum
func (v *checksumVerifier) VerifyChecksum(_ context.Context, filePath, expectedSum string) error {
	actualSum, err := v.CalculateChecksum(filePath)
	if err != nil {
		return err
	}

	if actualSum != strings.ToLower(expectedSum) {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expectedSum, actualSum)
	}

	return nil
}

// CalculateChecksum calculates the SHA256 checksum of a file
func (v *checksumVerifier) CalculateChecksum(filePath string) (string, error) {
	//nolint:gosec // G304: File path is user-provided for checksum calculation
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteChecksumFile writes "<sum>  <name>" to filePath.sha256 and returns the sum
func (v *checksumVerifier) WriteChecksumFile(filePath string) (string, error) {
	sum, err := v.CalculateChecksum(filePath)
	if err != nil {
		return "", err
	}

	line := fmt.Sprintf("%s  %s\n", sum, filepath.Base(filePath))
	//nolint:gosec // G306: checksum sidecars are public
	if err := os.WriteFile(filePath+services.ChecksumSuffix, []byte(line), 0644); err != nil {
		return "", fmt.Errorf("failed to write checksum file: %w", err)
	}
	return sum, nil
}

// ReadChecksumFile returns the sum recorded in a sha256sum-style sidecar
func (v *checksumVerifier) ReadChecksumFile(sidecarPath string) (string, error) {
	//nolint:gosec // G304: sidecar path is user-provided for verification
	data, err := os.ReadFile(sidecarPath)
	if err != nil {
		return "", fmt.Errorf("failed to read checksum file: %w", err)
	}

	fields := strings.Fields(string(data))
	if len(fields) == 0 || len(fields[0]) != sha256.Size*2 {
		return "", fmt.Errorf("malformed checksum file: %s", sidecarPath)
	}
	return strings.ToLower(fields[0]), nil
}
