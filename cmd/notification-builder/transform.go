package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/notification-builder/internal/domain/excerpt"
	"github.com/ehr/notification-builder/internal/platform/fhir"
	"github.com/ehr/notification-builder/pkg/fhirmodels"
)

const (
	operationExcerpt = excerpt.OperationExcerpt
	operationCopy    = excerpt.OperationCopy
)

// transformCmd runs an excerpt or copy against a bundle file, or stdin when
// the path is "-" or missing, without starting the server or the archive.
func transformCmd(operation string) *cobra.Command {
	short := "Produce the excerpt of a notification bundle at the next privacy tier"
	if operation == operationCopy {
		short = "Produce an independent copy of a notification bundle at the same tier"
	}

	cmd := &cobra.Command{
		Use:   operation + " [bundle.json]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			pretty, _ := cmd.Flags().GetBool("pretty")
			base, _ := cmd.Flags().GetString("base-url")

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			w := cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).With().Timestamp().Logger()
			return runTransform(cmd.Context(), operation, in, w, base, pretty, logger)
		},
	}
	cmd.Flags().StringP("out", "o", "", "Write the result to this file instead of stdout")
	cmd.Flags().Bool("pretty", false, "Indent the JSON output")
	cmd.Flags().String("base-url", fhirmodels.DefaultFHIRBase, "Base URL for entry fullUrls")
	return cmd
}

func runTransform(ctx context.Context, operation string, in io.Reader, out io.Writer, base string, pretty bool, logger zerolog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	b, err := fhir.Decode(in)
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}

	svc := excerpt.NewService(excerpt.NewEngine(excerpt.WithBaseURL(base), excerpt.WithLogger(logger)), nil)
	svc.SetLogger(logger)

	run := svc.Excerpt
	if operation == operationCopy {
		run = svc.Copy
	}
	res, err := run(ctx, b)
	if err != nil {
		return err
	}
	return fhir.Encode(out, res.Bundle, pretty)
}
