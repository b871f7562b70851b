// Package cli implements freelinkctl, the operator commands that run one
// pass of a background worker on demand.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/anonto42/freelink/backend/internal/bootstrap"
	"github.com/spf13/cobra"
)

// Opener builds the application container a command runs against.
type Opener func(ctx context.Context) (*bootstrap.Container, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"
	open   Opener
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for freelinkctl.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "freelinkctl",
		Short: "Operator commands for the freelink marketplace",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewRetryCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// withContainer opens the container, runs fn and closes it again.
func (o *RootOptions) withContainer(ctx context.Context, fn func(c *bootstrap.Container) error) error {
	c, err := o.open(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	defer c.Close()
	return fn(c)
}

// print writes v as indented JSON, or through text for the text format.
func (o *RootOptions) print(w io.Writer, v any, text func(io.Writer)) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(w)
	return nil
}
