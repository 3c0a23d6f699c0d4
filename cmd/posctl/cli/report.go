// Package cli implements the posctl subcommands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/ringmotos/ringpos/internal/platform/money"
	"github.com/ringmotos/ringpos/internal/reports"
)

// ReportSource loads the sales dashboard.
type ReportSource interface {
	Dashboard(ctx context.Context, r reports.Range) (*reports.Dashboard, error)
}

// ReportOptions defines the flags of the report command.
type ReportOptions struct {
	From       string
	To         string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// ReportCommand prints the range summary and the per-client and per-user tables.
func ReportCommand(ctx context.Context, source ReportSource, opts ReportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	rng, err := reports.ParseRange(opts.From, opts.To)
	if err != nil || rng.Empty() {
		_, _ = fmt.Fprintln(opts.Stderr, "report: --from and --to are required (YYYY-MM-DD, from <= to)")
		return 1
	}
	dash, err := source.Dashboard(ctx, rng)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "report: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(dash); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "report: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	renderReportHuman(opts.Stdout, dash)
	return 0
}

func renderReportHuman(w io.Writer, dash *reports.Dashboard) {
	_, _ = fmt.Fprintf(w, "Ventas del %s al %s\n", dash.Range.From, dash.Range.To)
	_, _ = fmt.Fprintf(w, "  Ventas:     %d\n", dash.Summary.TotalSales)
	_, _ = fmt.Fprintf(w, "  Total:      %s\n", money.Format(dash.Summary.TotalAmount))
	_, _ = fmt.Fprintf(w, "  Cobrado:    %s\n", money.Format(dash.Summary.PaidAmount))
	_, _ = fmt.Fprintf(w, "  Pendiente:  %s\n\n", money.Format(dash.Summary.PendingAmount))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(tw, "CLIENTE\tVENTAS\tTOTAL\tPENDIENTE\t")
	for _, row := range dash.ByClient {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t\n", row.ClientName, row.TotalSales, money.Format(row.TotalAmount), money.Format(row.PendingAmount))
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(tw, "VENDEDOR\tVENTAS\tTOTAL\tCOBRADO\t")
	for _, row := range dash.ByUser {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t\n", row.UserName, row.TotalSales, money.Format(row.TotalAmount), money.Format(row.PaidAmount))
	}
	_ = tw.Flush()
}
