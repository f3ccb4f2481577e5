package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"restaurant-sync/sync-svc/internal/domain"
	"restaurant-sync/sync-svc/internal/snapshot"

	"github.com/spf13/cobra"
)

// maxQueuePages bounds how far queue follows nextCursor.
const maxQueuePages = 20

func NewQueueCommand(rootOpts *RootOptions) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show the kitchen queue for one status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			orderStatus := domain.OrderStatus(strings.ToUpper(status))
			engine := rootOpts.engine()
			defer engine.Close()

			cursor := ""
			for i := 0; i < maxQueuePages; i++ {
				next, err := engine.Reconciler.LoadKitchenQueue(cmd.Context(), orderStatus, cursor)
				if err != nil {
					return err
				}
				if next == "" {
					break
				}
				cursor = next
			}
			return newFormatter(rootOpts, cmd.OutOrStdout()).Orders(engine.Projector.KitchenQueue(orderStatus))
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", string(domain.OrderPlaced), "PLACED, ACCEPTED or READY")
	return cmd
}

func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List the table registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := rootOpts.engine()
			defer engine.Close()

			filter := domain.RegistryFilter(strings.ToUpper(status))
			if err := engine.Reconciler.SetRegistryFilter(cmd.Context(), filter); err != nil {
				return err
			}
			return newFormatter(rootOpts, cmd.OutOrStdout()).Tables(engine.Projector.Registry())
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", string(domain.RegistryAll), "OPEN, CLOSED or ALL")
	return cmd
}

func NewTableCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "table <tableId>",
		Short: "Show one table's summary and orders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := rootOpts.engine()
			defer engine.Close()

			tableID := args[0]
			if err := engine.Reconciler.SelectTable(cmd.Context(), tableID); err != nil {
				return err
			}
			table, _ := engine.Projector.Table(tableID)
			return newFormatter(rootOpts, cmd.OutOrStdout()).Table(table, engine.Projector.TableOrders(tableID))
		},
	}
}

func NewPlaceCommand(rootOpts *RootOptions) *cobra.Command {
	var items []string

	cmd := &cobra.Command{
		Use:     "place <tableId>",
		Short:   "Place an order on a table",
		Example: `  syncctl place tbl_7 --item itm_burger=2 --item itm_fries=1`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := parseItems(items)
			if err != nil {
				return err
			}
			engine := rootOpts.engine()
			defer engine.Close()

			order, err := engine.Reconciler.PlaceOrder(cmd.Context(), args[0], lines)
			if err != nil {
				return err
			}
			return newFormatter(rootOpts, cmd.OutOrStdout()).Orders([]domain.Order{order})
		},
	}

	cmd.Flags().StringArrayVarP(&items, "item", "i", nil, "line as itemId=quantity (repeatable)")
	return cmd
}

// parseItems turns itemId=quantity pairs into order lines. A bare itemId
// means quantity 1.
func parseItems(items []string) ([]snapshot.LineRequest, error) {
	lines := make([]snapshot.LineRequest, 0, len(items))
	for _, item := range items {
		id, qty, found := strings.Cut(item, "=")
		quantity := 1
		if found {
			n, err := strconv.Atoi(qty)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid quantity in %q", item)
			}
			quantity = n
		}
		if id == "" {
			return nil, fmt.Errorf("missing item id in %q", item)
		}
		lines = append(lines, snapshot.LineRequest{ItemID: id, Quantity: quantity})
	}
	return lines, nil
}

func NewCloseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "close <tableId>",
		Short: "Close a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := rootOpts.engine()
			defer engine.Close()

			if err := engine.Reconciler.CloseTable(cmd.Context(), args[0]); err != nil {
				return err
			}
			return newFormatter(rootOpts, cmd.OutOrStdout()).Message("closed %s", args[0])
		},
	}
}

func NewOpenCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <tableId>",
		Short: "Open a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := rootOpts.engine()
			defer engine.Close()

			if err := engine.Reconciler.OpenTable(cmd.Context(), args[0]); err != nil {
				return err
			}
			return newFormatter(rootOpts, cmd.OutOrStdout()).Message("opened %s", args[0])
		},
	}
}

func NewAcceptCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "accept <orderId>",
		Short: "Accept a placed order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := rootOpts.engine()
			defer engine.Close()

			order, err := engine.Reconciler.AcceptOrder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return newFormatter(rootOpts, cmd.OutOrStdout()).Orders([]domain.Order{order})
		},
	}
}

func NewReadyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ready <orderId>",
		Short: "Mark an accepted order ready",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := rootOpts.engine()
			defer engine.Close()

			order, err := engine.Reconciler.MarkOrderReady(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return newFormatter(rootOpts, cmd.OutOrStdout()).Orders([]domain.Order{order})
		},
	}
}

func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live stream and print connection state and queue sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("interval must be positive, got %s", interval)
			}
			engine := rootOpts.engine()
			defer engine.Close()
			out := newFormatter(rootOpts, cmd.OutOrStdout())

			states := make(chan domain.ConnState, 8)
			engine.Live(func(state domain.ConnState) {
				select {
				case states <- state:
				default:
				}
			})

			ctx := cmd.Context()
			done := make(chan error, 1)
			go func() { done <- engine.Run(ctx) }()

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case err := <-done:
					return err
				case state := <-states:
					out.Message("connection %s", state)
				case <-ticker.C:
					out.Message("placed=%d accepted=%d ready=%d dropped=%d",
						len(engine.Projector.KitchenQueue(domain.OrderPlaced)),
						len(engine.Projector.KitchenQueue(domain.OrderAccepted)),
						len(engine.Projector.KitchenQueue(domain.OrderReady)),
						engine.Reconciler.Dropped())
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "how often to print queue sizes")
	return cmd
}
