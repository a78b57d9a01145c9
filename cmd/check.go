package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Justype/hqadapter/internal/config"
	"github.com/Justype/hqadapter/internal/utils"
)

var templateCheckCmd = &cobra.Command{
	Use:   "check <template>...",
	Short: "Validate job templates without submitting them",
	Long: `Load and validate job templates: resources, steps, wall time and environment
names. Deprecated resource fields are reported as warnings.

Exits non-zero when any template is invalid.`,
	Example: `  hqadapter check job.yaml
  hqadapter check jobs/*.yaml`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runCheck,
}

func init() {
	rootCmd.AddCommand(templateCheckCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	invalid := 0
	for _, path := range args {
		tmpl, err := loadTemplate(path, config.ResourceOverrides{})
		if err != nil {
			utils.PrintError("%s: %v", utils.StylePath(path), err)
			invalid++
			continue
		}
		utils.PrintSuccess("%s: %s, %d step(s)", utils.StylePath(path), tmpl.Resources, len(tmpl.Steps))
	}
	if invalid > 0 {
		return fmt.Errorf("%d of %d templates are invalid", invalid, len(args))
	}
	return nil
}
