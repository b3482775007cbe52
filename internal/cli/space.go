package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewSpaceCmd creates the 'space' command that prints the search space.
func NewSpaceCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "space",
		Short: "Print the effective search space",
		Long: `Print the search space a run would explore: the built-in one, or the
one declared in the HCL file given with --space after validation.`,
		Example: `  gnnsearch space
  gnnsearch space --space space.hcl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			space, err := loadSpace(path)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, p := range space {
				fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.Distribution)
			}

			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&path, "space", "", "HCL search space file (default: built-in space)")

	return cmd
}
