package cli

import (
	"io"

	"fluxao-backend-go/internal/db"
	"fluxao-backend-go/internal/migrations"

	"github.com/spf13/cobra"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			database, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer database.Close()

			pending, err := migrations.Pending(ctx, database)
			if err != nil {
				return err
			}
			if err := migrations.Apply(ctx, database); err != nil {
				return err
			}
			return newPrinter(rootOpts, cmd.OutOrStdout()).print(map[string][]string{"applied": pending}, func(w io.Writer) {
				if len(pending) == 0 {
					line(w, "schema up to date")
					return
				}
				for _, name := range pending {
					line(w, "applied %s", name)
				}
			})
		},
	}
}
