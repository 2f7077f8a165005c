package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ochairo/plugship/internal/domain/entities"
	"github.com/ochairo/plugship/internal/domain/services"
	"github.com/ochairo/plugship/internal/external-adapters/yaml"
)

type descriptorOutput struct {
	Descriptor   *entities.Descriptor      `json:"descriptor"`
	Compiler     entities.CompilerSettings `json:"compiler"`
	CompilerArgs []string                  `json:"compiler_args"`
	ArchiveName  string                    `json:"archive_name"`
}

func (a *app) descriptorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "descriptor",
		Short: "Print the loaded descriptor and resolved compiler settings",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.loadDescriptor(cmd.Context())
			if err != nil {
				return err
			}

			settings := services.ResolveCompilerSettings(d.LanguageLevel)
			out := descriptorOutput{
				Descriptor:   d,
				Compiler:     settings,
				CompilerArgs: services.CompilerArgs(settings),
				ArchiveName:  services.ArchiveName(d),
			}

			data, err := yaml.Marshal(d)
			if err != nil {
				return err
			}
			return a.emit(out, func(w io.Writer) {
				fmt.Fprint(w, string(data))
				fmt.Fprintf(w, "# compiler: %s\n", strings.Join(out.CompilerArgs, " "))
				fmt.Fprintf(w, "# archive: %s\n", out.ArchiveName)
			})
		},
	}
}
