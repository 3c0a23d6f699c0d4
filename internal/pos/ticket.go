package pos

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/ringmotos/ringpos/internal/platform/money"
)

const ticketWidth = 80

// TicketData is what gets printed on a sale receipt.
type TicketData struct {
	Business   string
	Sale       *Sale
	ClientName string
	Cashier    string
	PrintedAt  time.Time
}

// RenderTicket draws an 80mm receipt for the sale.
func RenderTicket(data TicketData) ([]byte, error) {
	if data.Sale == nil {
		return nil, ErrNoActiveSale
	}
	sale := data.Sale
	if data.PrintedAt.IsZero() {
		data.PrintedAt = time.Now()
	}

	height := 90.0 + float64(len(sale.Items))*5 + float64(len(sale.Payments))*4
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: ticketWidth, Ht: height},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, tr(data.Business), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	title := "Comprobante de venta"
	if sale.RemitoID != "" {
		title = "Remito " + sale.RemitoID
	}
	pdf.CellFormat(contentW, 5, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, tr("Venta "+sale.ID), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, data.PrintedAt.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	client := data.ClientName
	if client == "" {
		client = "Consumidor final"
	}
	pdf.CellFormat(contentW, 4, tr("Cliente: "+client), "", 1, "L", false, 0, "")
	if data.Cashier != "" {
		pdf.CellFormat(contentW, 4, tr("Atendió: "+data.Cashier), "", 1, "L", false, 0, "")
	}
	pdf.Ln(1)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	col1 := contentW * 0.50
	col2 := contentW * 0.14
	col3 := contentW * 0.36

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, tr("Descripción"), "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Cant", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Importe", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, item := range sale.Items {
		desc := []rune(item.Description)
		if len(desc) > 26 {
			desc = append(desc[:25], '.')
		}
		pdf.CellFormat(col1, 5, tr(string(desc)), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, "x"+item.Qty.String(), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, money.Format(item.LineTotal()), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, money.Format(sale.Total), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, p := range sale.Payments {
		pdf.CellFormat(col1+col2, 4, tr(fmt.Sprintf("Pago (%s):", p.Method.Label())), "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 4, money.Format(p.Amount), "", 1, "R", false, 0, "")
	}
	if sale.Balance.IsPositive() {
		pdf.SetFont("Helvetica", "B", 7)
		pdf.CellFormat(col1+col2, 5, "Saldo a cuenta corriente:", "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, money.Format(sale.Balance), "", 1, "R", false, 0, "")
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, tr("¡Gracias por su compra!"), "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 4, tr("Documento no válido como factura"), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pos: render ticket: %w", err)
	}
	return buf.Bytes(), nil
}
