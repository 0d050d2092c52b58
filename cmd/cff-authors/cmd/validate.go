package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/willynilly/action-update-cff-authors/pkg/cff"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate the structure of a CITATION.cff file",
	Long: `Validate loads a CITATION.cff file and checks its structure: required
top-level keys, person/entity author shape, and ORCID format. The file
defaults to CITATION.cff in the working directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "CITATION.cff"
		if len(args) == 1 {
			path = args[0]
		}

		doc, err := cff.LoadFile(path)
		if err != nil {
			return err
		}
		if err := doc.Validate(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s is valid (%d authors)\n", path, len(doc.Authors))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
