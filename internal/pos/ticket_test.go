package pos

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRenderTicketProducesPDF(t *testing.T) {
	sale := &Sale{
		ID:       "sale-1",
		Status:   StatusConfirmed,
		RemitoID: "R-0001",
		Items: []SaleItem{
			{ID: "i1", Description: "Cubierta trasera 130/70 para moto de calle", Qty: dec("1"), UnitPrice: dec("45000")},
			{ID: "i2", Description: "Cámara", Qty: dec("2"), UnitPrice: dec("3500.50")},
		},
		Payments: []Payment{{ID: "p1", Amount: dec("20000"), Method: MethodCash}},
	}
	sale.Recompute()

	pdf, err := RenderTicket(TicketData{Business: "Ring Motos", Sale: sale, ClientName: "Juan Pérez", PrintedAt: time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestRenderTicketNeedsSale(t *testing.T) {
	_, err := RenderTicket(TicketData{Business: "Ring Motos"})
	require.ErrorIs(t, err, ErrNoActiveSale)
}
