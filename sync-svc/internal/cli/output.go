package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"restaurant-sync/sync-svc/internal/domain"
)

// OutputFormatter writes command results as aligned text or JSON.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

func newFormatter(opts *RootOptions, w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: w}
}

func (f *OutputFormatter) json(v interface{}) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (f *OutputFormatter) Orders(orders []domain.Order) error {
	if f.Format == "json" {
		if orders == nil {
			orders = []domain.Order{}
		}
		return f.json(orders)
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tTABLE\tSTATUS\tTOTAL\tLINES\tCREATED")
	for _, order := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			order.OrderID, order.TableID, order.Status, order.TotalDisplay(), len(order.Lines), order.CreatedAt)
	}
	return tw.Flush()
}

func (f *OutputFormatter) Tables(tables []domain.Table) error {
	if f.Format == "json" {
		if tables == nil {
			tables = []domain.Table{}
		}
		return f.json(tables)
	}
	tw := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TABLE\tSTATUS\tOPENED\tCLOSED\tLAST ORDER\tORDERS\tTOTAL")
	for _, table := range tables {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			table.TableID, table.Status, dash(table.OpenedAt), dash(table.ClosedAt), dash(table.LastOrderAt),
			table.Counts.OrdersTotal, table.Totals.Display())
	}
	return tw.Flush()
}

func (f *OutputFormatter) Table(table domain.Table, orders []domain.Order) error {
	if f.Format == "json" {
		if orders == nil {
			orders = []domain.Order{}
		}
		return f.json(map[string]interface{}{"summary": table, "orders": orders})
	}
	fmt.Fprintf(f.Writer, "%s  %s  orders=%d placed=%d accepted=%d ready=%d  total=%s\n",
		table.TableID, table.Status, table.Counts.OrdersTotal, table.Counts.Placed,
		table.Counts.Accepted, table.Counts.Ready, table.Totals.Display())
	return f.Orders(orders)
}

func (f *OutputFormatter) Message(format string, args ...interface{}) error {
	if f.Format == "json" {
		return f.json(map[string]string{"message": fmt.Sprintf(format, args...)})
	}
	_, err := fmt.Fprintf(f.Writer, format+"\n", args...)
	return err
}

func dash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
