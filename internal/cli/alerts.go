package cli

import (
	"io"

	"github.com/spf13/cobra"
)

func NewAlertsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List and resolve monitoring alerts",
	}
	cmd.AddCommand(newAlertsListCommand(rootOpts))
	cmd.AddCommand(newAlertsResolveCommand(rootOpts))
	return cmd
}

func newAlertsListCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		all   bool
		limit int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open alerts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.Store.ListAlerts(cmd.Context(), all, limit)
			if err != nil {
				return err
			}
			return newPrinter(rootOpts, cmd.OutOrStdout()).print(items, func(w io.Writer) {
				if len(items) == 0 {
					line(w, "no alerts")
					return
				}
				for _, alert := range items {
					state := "open"
					if alert.Resolved {
						state = "resolved"
					}
					line(w, "%s\t%s\t%d\t%s\t%s", alert.ID, alert.Category, alert.Severity, state, alert.Message)
				}
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include resolved alerts")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of alerts")
	return cmd
}

func newAlertsResolveCommand(rootOpts *RootOptions) *cobra.Command {
	var operator string
	cmd := &cobra.Command{
		Use:   "resolve <alert-id>",
		Short: "Resolve an open alert as an operator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			alert, err := a.Monitor.ResolveAlert(cmd.Context(), args[0], operator)
			if err != nil {
				return err
			}
			return newPrinter(rootOpts, cmd.OutOrStdout()).print(alert, func(w io.Writer) {
				line(w, "resolved %s", alert.ID)
			})
		},
	}
	cmd.Flags().StringVar(&operator, "operator", "govctl", "operator id recorded as resolvedBy")
	return cmd
}
