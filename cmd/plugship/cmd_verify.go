package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ochairo/plugship/internal/domain-adapters/gateways"
	"github.com/ochairo/plugship/internal/domain/entities"
	"github.com/ochairo/plugship/internal/domain/services"
	"github.com/ochairo/plugship/internal/external-adapters/environment"
)

type verifyOutput struct {
	Artifact         string `json:"artifact"`
	Signature        string `json:"signature"`
	Fingerprint      string `json:"fingerprint"`
	ChecksumVerified bool   `json:"checksum_verified"`
}

func (a *app) verifyCommand() *cobra.Command {
	var signature, chain, checksum string

	cmd := &cobra.Command{
		Use:   "verify <artifact>",
		Short: "Verify an artifact's detached signature and checksum",
		Long: `Verify a detached OpenPGP signature against a certificate chain.

The chain is read from --chain or, when omitted, from CERTIFICATE_CHAIN.
A .sha256 sidecar next to the artifact, or the file given with
--checksum, is verified as well.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			artifactPath := args[0]
			if signature == "" {
				signature = artifactPath + services.SignatureSuffix
			}

			var chainData []byte
			if chain != "" {
				//nolint:gosec // G304: chain path is user-provided
				data, err := os.ReadFile(chain)
				if err != nil {
					return usageError(fmt.Errorf("failed to read chain: %w", err))
				}
				chainData = data
			} else {
				data, err := environment.ResolveMaterial(environment.EnvCertificateChain, a.loadEnv().Signing.CertificateChain, os.ReadFile)
				if err != nil {
					return entities.Fatal(entities.StageSign, err)
				}
				chainData = data
			}
			if len(chainData) == 0 {
				return entities.MissingSecret(environment.EnvCertificateChain)
			}

			fingerprint, err := gateways.NewPGPSigner(a.logger()).Verify(artifactPath, signature, chainData)
			if err != nil {
				return entities.Fatal(entities.StageSign, err)
			}

			out := verifyOutput{Artifact: artifactPath, Signature: signature, Fingerprint: fingerprint}

			if checksum == "" {
				if _, err := os.Stat(artifactPath + services.ChecksumSuffix); err == nil {
					checksum = artifactPath + services.ChecksumSuffix
				}
			}
			if checksum != "" {
				verifier := gateways.NewChecksumVerifier()
				sum, err := verifier.ReadChecksumFile(checksum)
				if err != nil {
					return entities.Fatal(entities.StagePackage, err)
				}
				if err := verifier.VerifyChecksum(cmd.Context(), artifactPath, sum); err != nil {
					return entities.Fatal(entities.StagePackage, err)
				}
				out.ChecksumVerified = true
			}

			return a.emit(out, func(w io.Writer) {
				fmt.Fprintf(w, "signature OK, signed by %s\n", out.Fingerprint)
				if out.ChecksumVerified {
					fmt.Fprintln(w, "checksum OK")
				}
			})
		},
	}

	cmd.Flags().StringVar(&signature, "signature", "", "Detached signature (default: <artifact>.asc)")
	cmd.Flags().StringVar(&chain, "chain", "", "Armored public keyring (default: CERTIFICATE_CHAIN)")
	cmd.Flags().StringVar(&checksum, "checksum", "", "sha256sum-style checksum file")
	return cmd
}
