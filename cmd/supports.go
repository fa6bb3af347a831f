package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/mdbook-dice/internal/preprocessor"
)

var supportsCmd = &cobra.Command{
	Use:   "supports <renderer>",
	Short: "Check whether a renderer is supported by this preprocessor",
	Long: `mdBook runs this before every build with the name of the renderer in use.
Exit status 0 means the preprocessor should run for that renderer. Every
renderer is supported.

Examples:
  mdbook-dice supports html
  mdbook-dice supports epub`,
	Args: cobra.ExactArgs(1),
	RunE: runSupports,
}

func init() {
	rootCmd.AddCommand(supportsCmd)
}

// runSupports does not load configuration so that a broken config file
// surfaces during the build instead of silently disabling the preprocessor.
func runSupports(cmd *cobra.Command, args []string) error {
	renderer := args[0]
	if code := preprocessor.HandleSupports(preprocessor.NewDice(nil, nil), renderer); code != 0 {
		return fmt.Errorf("renderer %q is not supported", renderer)
	}
	return nil
}
