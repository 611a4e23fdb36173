package cli

import (
	"io"
	"sort"

	"github.com/spf13/cobra"
)

func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run one monitoring cycle and print the health report",
		Long: `Run one monitoring cycle: collect metrics, score health, raise or resolve
alerts and attempt auto-remediation. The snapshot and any alerts are persisted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Monitor.RunCycle(cmd.Context())
			if err != nil {
				return err
			}
			return newPrinter(rootOpts, cmd.OutOrStdout()).print(report, func(w io.Writer) {
				line(w, "overall: %s (score %d)", report.Overall, report.Score)
				names := make([]string, 0, len(report.Components))
				for name := range report.Components {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					c := report.Components[name]
					line(w, "  %-12s %3d %s", name, c.Score, c.Status)
				}
				for _, alert := range report.Alerts {
					line(w, "alert %s [severity %d] %s", alert.ID, alert.Severity, alert.Message)
				}
			})
		},
	}
}
