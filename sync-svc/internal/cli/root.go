package cli

import (
	"fmt"

	"restaurant-sync/config"
	"restaurant-sync/sync-svc/internal/app"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands. Empty connection flags
// fall back to the environment.
type RootOptions struct {
	Format       string
	APIBaseURL   string
	WSBaseURL    string
	RestaurantID string
	Role         string

	Config config.Config
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "syncctl",
		Short: "Inspect and drive a restaurant's order and table state",
		Long: `syncctl loads kitchen queues and table registries from the ordering API,
performs table and order actions, and can follow the live event stream.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.APIBaseURL, "api", "", "ordering API base URL (default $SYNC_API_BASE_URL)")
	cmd.PersistentFlags().StringVar(&opts.WSBaseURL, "ws", "", "event stream base URL (default $SYNC_WS_BASE_URL)")
	cmd.PersistentFlags().StringVarP(&opts.RestaurantID, "restaurant", "r", "", "restaurant id (default $SYNC_RESTAURANT_ID)")
	cmd.PersistentFlags().StringVar(&opts.Role, "role", "", "KITCHEN or TABLET (default $SYNC_ROLE)")

	cmd.AddCommand(NewQueueCommand(opts))
	cmd.AddCommand(NewTablesCommand(opts))
	cmd.AddCommand(NewTableCommand(opts))
	cmd.AddCommand(NewPlaceCommand(opts))
	cmd.AddCommand(NewCloseCommand(opts))
	cmd.AddCommand(NewOpenCommand(opts))
	cmd.AddCommand(NewAcceptCommand(opts))
	cmd.AddCommand(NewReadyCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

func (o *RootOptions) loadConfig() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if o.APIBaseURL != "" {
		cfg.APIBaseURL = o.APIBaseURL
	}
	if o.WSBaseURL != "" {
		cfg.WSBaseURL = o.WSBaseURL
	}
	if o.RestaurantID != "" {
		cfg.RestaurantID = o.RestaurantID
	}
	if o.Role != "" {
		cfg.Role = o.Role
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.Config = cfg
	return nil
}

func (o *RootOptions) engine() *app.Engine {
	return app.New(o.Config)
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
