package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ochairo/plugship/internal/domain/entities"
	"github.com/ochairo/plugship/internal/domain/interfaces"
	"github.com/ochairo/plugship/internal/domain/services"
)

type violationOutput struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type validateOutput struct {
	Policy          string            `json:"policy"`
	Valid           bool              `json:"valid"`
	RangeConsistent bool              `json:"range_consistent"`
	Violations      []violationOutput `json:"violations"`
}

func (a *app) validateCommand() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the descriptor against a validation policy",
		Long: `Check the descriptor against its validation policy.

The permissive policy accepts every descriptor and only warns about an
inverted compatibility range. The strict policy rejects empty identity
fields, unknown editions, malformed build numbers or language levels and
inverted ranges.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := a.loadDescriptor(cmd.Context())
			if err != nil {
				return err
			}

			name := d.Validation
			if strict {
				name = services.PolicyStrict
			}
			policy, err := services.PolicyByName(name)
			if err != nil {
				return entities.Fatal(entities.StageValidate, err)
			}

			violations := policy.Validate(d)
			out := validateOutput{
				Policy:          policy.Name(),
				Valid:           len(violations) == 0,
				RangeConsistent: services.RangeIsConsistent(d.Compatibility),
				Violations:      make([]violationOutput, 0, len(violations)),
			}
			for _, v := range violations {
				out.Violations = append(out.Violations, violationOutput{Field: v.Field, Message: v.Message})
			}

			if out.Valid && !out.RangeConsistent {
				a.logger().Warn("compatibility range is inverted",
					interfaces.F("since_build", d.Compatibility.SinceBuild),
					interfaces.F("until_build", d.Compatibility.UntilBuild))
			}

			if err := a.emit(out, func(w io.Writer) {
				fmt.Fprintf(w, "policy: %s\n", out.Policy)
				for _, v := range violations {
					fmt.Fprintf(w, "  %s\n", v)
				}
				if out.Valid {
					fmt.Fprintln(w, "descriptor is valid")
				}
			}); err != nil {
				return err
			}

			if !out.Valid {
				return entities.Fatal(entities.StageValidate,
					fmt.Errorf("%w: %d violation(s)", entities.ErrValidation, len(violations)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Use the strict policy regardless of the descriptor")
	return cmd
}
