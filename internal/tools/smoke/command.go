package smoke

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/commercegate/admin-security/internal/tools/common"
	"github.com/commercegate/admin-security/internal/tools/ui"
)

type options struct {
	baseURL  string
	email    string
	password string
	ci       bool
}

func NewCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Exercise a running instance: lockout, CSRF and throttle behavior",
		RunE: func(cmd *cobra.Command, args []string) error {
			fn := func(ctx context.Context) ([]string, error) {
				return Run(ctx, Config{
					BaseURL:  opts.baseURL,
					Email:    opts.email,
					Password: opts.password,
				})
			}
			var details []string
			var err error
			if opts.ci {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
				defer cancel()
				details, err = fn(ctx)
				common.PrintCIResult(err == nil, "smoke", details, err)
			} else {
				details, err = ui.Run("smoke", fn)
				_ = details
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.Flags().StringVar(&opts.email, "email", "", "admin email for the CSRF flow (optional)")
	cmd.Flags().StringVar(&opts.password, "password", "", "admin password for the CSRF flow (optional)")
	cmd.Flags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	return cmd
}
