// Package reports fetches sales reports from the upstream and caches them in Redis.
package reports

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ringmotos/ringpos/internal/platform/httpx"
)

const dateLayout = "2006-01-02"

// UnknownClient names report rows with neither client nor user name.
const UnknownClient = "Cliente Desconocido"

// Totals are the aggregate columns shared by every report.
type Totals struct {
	TotalSales    int             `json:"totalSales"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	PendingAmount decimal.Decimal `json:"pendingAmount"`
}

// RangeSalesReport aggregates all sales in a date range.
type RangeSalesReport struct {
	Totals
}

// ClientSalesReport aggregates sales for one client.
type ClientSalesReport struct {
	ClientID   string `json:"clientId"`
	ClientName string `json:"clientName"`
	UserName   string `json:"userName,omitempty"`
	Totals
}

// UserSalesReport aggregates sales for one seller.
type UserSalesReport struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	Totals
}

// Dashboard bundles the three reports for one range.
type Dashboard struct {
	Range    Range               `json:"range"`
	Summary  RangeSalesReport    `json:"summary"`
	ByClient []ClientSalesReport `json:"byClient"`
	ByUser   []UserSalesReport   `json:"byUser"`
}

// Range is an inclusive YYYY-MM-DD window. The zero Range means all time.
type Range struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ParseRange validates from and to. Both must be set or both empty.
func ParseRange(from, to string) (Range, error) {
	r := Range{From: strings.TrimSpace(from), To: strings.TrimSpace(to)}
	if r.From == "" && r.To == "" {
		return r, nil
	}
	if r.From == "" || r.To == "" {
		return Range{}, fmt.Errorf("%w: both from and to are required", httpx.ErrValidation)
	}
	start, err := time.Parse(dateLayout, r.From)
	if err != nil {
		return Range{}, fmt.Errorf("%w: invalid from date %q", httpx.ErrValidation, r.From)
	}
	end, err := time.Parse(dateLayout, r.To)
	if err != nil {
		return Range{}, fmt.Errorf("%w: invalid to date %q", httpx.ErrValidation, r.To)
	}
	if start.After(end) {
		return Range{}, fmt.Errorf("%w: from must not be after to", httpx.ErrValidation)
	}
	return r, nil
}

// CurrentMonth returns the range from the first of now's month to now.
func CurrentMonth(now time.Time) Range {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return Range{From: first.Format(dateLayout), To: now.Format(dateLayout)}
}

// Empty reports whether the range is unbounded.
func (r Range) Empty() bool {
	return r.From == "" && r.To == ""
}

func normalizeClientRows(rows []ClientSalesReport) []ClientSalesReport {
	if rows == nil {
		return []ClientSalesReport{}
	}
	for i := range rows {
		switch {
		case strings.TrimSpace(rows[i].ClientName) != "":
		case strings.TrimSpace(rows[i].UserName) != "":
			rows[i].ClientName = rows[i].UserName
		default:
			rows[i].ClientName = UnknownClient
		}
	}
	return rows
}
