package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ochairo/plugship/internal/domain-adapters/gateways"
	"github.com/ochairo/plugship/internal/domain/entities"
	"github.com/ochairo/plugship/internal/domain/services"
)

type signOutput struct {
	Artifact    string `json:"artifact"`
	Signature   string `json:"signature"`
	Fingerprint string `json:"fingerprint"`
}

func (a *app) signCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sign <artifact>",
		Short: "Write a detached OpenPGP signature for an artifact",
		Long: `Sign an artifact with PRIVATE_KEY (unlocked by PRIVATE_KEY_PASSWORD) and
check the signature against CERTIFICATE_CHAIN. The armored signature is
written next to the artifact with an .asc suffix.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := a.loadEnv()

			path := args[0]
			artifact := &entities.Artifact{
				Name: strings.TrimSuffix(filepath.Base(path), services.ArchiveSuffix),
				Path: path,
				Type: entities.ArtifactTypeArchive,
			}

			signed, err := gateways.NewPGPSigner(a.logger()).Sign(cmd.Context(), artifact, env.Signing)
			if err != nil {
				return err
			}

			out := signOutput{Artifact: path, Signature: signed.SignaturePath, Fingerprint: signed.SignerFingerprint}
			return a.emit(out, func(w io.Writer) {
				fmt.Fprintf(w, "%s\n", out.Signature)
				fmt.Fprintf(w, "signed by %s\n", out.Fingerprint)
			})
		},
	}
}
