package cli

import (
	"io"
	"time"

	"fluxao-backend-go/internal/models"

	"github.com/spf13/cobra"
)

type validateOptions struct {
	identity string
	role     string
	task     string
	provider string
	payload  string
}

// NewValidateCommand dry-runs the admission pipeline. The decision and its
// security event are recorded exactly as for a live request.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &validateOptions{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an AI task request for an identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			result := a.Validator.Validate(cmd.Context(), models.AITaskRequest{
				Identity:  models.Identity{ID: opts.identity, Role: models.ParseRole(opts.role)},
				Task:      opts.task,
				Provider:  opts.provider,
				Payload:   opts.payload,
				Timestamp: time.Now().UTC(),
			})
			err = newPrinter(rootOpts, cmd.OutOrStdout()).print(result, func(w io.Writer) {
				if result.Valid {
					line(w, "admitted")
					return
				}
				line(w, "denied: %s (%s, severity %s)", result.Reason, result.Code, result.Severity)
			})
			if err != nil {
				return err
			}
			if !result.Valid {
				return &ExitError{Code: ExitDenied, Message: string(result.Code)}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.identity, "identity", "", "identity id (required)")
	cmd.Flags().StringVar(&opts.role, "role", "USER", "role code: USER, EDITOR or ADMIN")
	cmd.Flags().StringVar(&opts.task, "task", "", "task name (required)")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "provider name")
	cmd.Flags().StringVar(&opts.payload, "payload", "", "request payload text")
	_ = cmd.MarkFlagRequired("identity")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}
