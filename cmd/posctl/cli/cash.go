package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ringmotos/ringpos/internal/cashdrawer"
	"github.com/ringmotos/ringpos/internal/platform/money"
)

// Drawer is the cash drawer bookkeeping used by the cash subcommands.
type Drawer interface {
	Current(ctx context.Context, terminal string) (*cashdrawer.Register, error)
	Open(ctx context.Context, terminal string, amount decimal.Decimal, name string) (*cashdrawer.Register, error)
	Close(ctx context.Context, terminal string) (*cashdrawer.CloseSummary, error)
}

// CashOptions holds the flags of the cash subcommands.
type CashOptions struct {
	Terminal string
	Amount   string
	Name     string
	Stdout   io.Writer
	Stderr   io.Writer
}

func (o *CashOptions) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if strings.TrimSpace(o.Terminal) == "" {
		o.Terminal = "main"
	}
}

// CashStatusCommand prints the open register of a terminal.
func CashStatusCommand(ctx context.Context, drawer Drawer, opts CashOptions) int {
	opts.defaults()
	reg, err := drawer.Current(ctx, opts.Terminal)
	if errors.Is(err, cashdrawer.ErrNoOpenRegister) {
		_, _ = fmt.Fprintf(opts.Stdout, "terminal %s: caja cerrada\n", opts.Terminal)
		return 0
	}
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "cash status: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(opts.Stdout, "terminal %s: caja abierta desde %s con %s (id %s)\n",
		opts.Terminal, reg.OpenedAt.Local().Format("02/01/2006 15:04"), money.Format(reg.OpeningAmount), reg.ID)
	return 0
}

// CashOpenCommand opens a register with the given float.
func CashOpenCommand(ctx context.Context, drawer Drawer, opts CashOptions) int {
	opts.defaults()
	amount, err := decimal.NewFromString(strings.TrimSpace(opts.Amount))
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "cash open: invalid --amount %q\n", opts.Amount)
		return 1
	}
	reg, err := drawer.Open(ctx, opts.Terminal, amount, opts.Name)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "cash open: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(opts.Stdout, "caja abierta en %s con %s (id %s)\n", opts.Terminal, money.Format(reg.OpeningAmount), reg.ID)
	return 0
}

// CashCloseCommand closes the register and prints the expected cash.
func CashCloseCommand(ctx context.Context, drawer Drawer, opts CashOptions) int {
	opts.defaults()
	summary, err := drawer.Close(ctx, opts.Terminal)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "cash close: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(opts.Stdout, "caja cerrada en %s\n", opts.Terminal)
	_, _ = fmt.Fprintf(opts.Stdout, "  apertura:  %s\n", money.Format(summary.Register.OpeningAmount))
	_, _ = fmt.Fprintf(opts.Stdout, "  ingresos:  %s\n", money.Format(summary.In))
	_, _ = fmt.Fprintf(opts.Stdout, "  egresos:   %s\n", money.Format(summary.Out))
	_, _ = fmt.Fprintf(opts.Stdout, "  esperado:  %s\n", money.Format(summary.Expected))
	return 0
}
