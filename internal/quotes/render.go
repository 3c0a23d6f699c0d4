package quotes

import (
	"bytes"
	"context"
	"html/template"

	"github.com/shopspring/decimal"

	"github.com/ringmotos/ringpos/internal/platform/money"
	"github.com/ringmotos/ringpos/internal/printing"
)

// PDFRenderer converts HTML to PDF.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string, page printing.Page) ([]byte, error)
}

var quoteTemplate = template.Must(template.New("quote").Funcs(template.FuncMap{
	"money": money.Format,
	"qty":   func(d decimal.Decimal) string { return d.String() },
	"date":  func(q *Quote) string { return q.IssuedAt.Format("02/01/2006") },
	"until": func(q *Quote) string { return q.ValidUntil.Format("02/01/2006") },
}).Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>Presupuesto {{.Number}}</title>
<style>
@page { size: A4; margin: 0; }
body { font-family: Helvetica, Arial, sans-serif; color: #111; margin: 0; padding: 40px; }
header { display: flex; justify-content: space-between; align-items: center; border-bottom: 4px solid #111; padding-bottom: 16px; }
header .mark { font-size: 48px; font-weight: 900; border: 4px solid #111; width: 64px; text-align: center; }
.meta { display: flex; justify-content: space-between; margin: 24px 0; }
.label { font-size: 10px; text-transform: uppercase; color: #666; font-weight: 700; }
table { width: 100%; border-collapse: collapse; }
th { background: #111; color: #fff; font-size: 11px; text-transform: uppercase; padding: 8px; }
td { padding: 8px; border-bottom: 1px solid #ddd; }
.num { text-align: right; }
.center { text-align: center; }
.total { margin-top: 24px; text-align: right; font-size: 28px; font-weight: 900; }
footer { margin-top: 48px; font-size: 11px; color: #666; border-top: 1px solid #ddd; padding-top: 12px; }
</style>
</head>
<body>
<header>
  <div><strong>{{.Business}}</strong></div>
  <div class="center">
    <div class="mark">P</div>
    <h2>Presupuesto</h2>
    <div>N° {{.Number}}</div>
    <div>Fecha: {{date .}}</div>
  </div>
  <div></div>
</header>
<section class="meta">
  <div>
    <div class="label">Cliente:</div>
    <div><strong>{{.Customer.Name}}</strong></div>
    {{with .Customer.Address}}<div>{{.}}</div>{{end}}
    {{with .Customer.Phone}}<div>Tel: {{.}}</div>{{end}}
  </div>
  <div class="num">
    <div class="label">Validez del Presupuesto</div>
    <div><strong>{{.ValidityDays}} DÍAS CORRIDOS</strong></div>
    <div>A partir de la fecha de emisión. Vence el {{until .}}.</div>
  </div>
</section>
<table>
  <thead><tr><th class="center">Cant.</th><th>Descripción</th><th class="num">Precio Unit.</th><th class="num">Subtotal</th></tr></thead>
  <tbody>
  {{range .Lines}}<tr><td class="center">{{qty .Qty}}</td><td>{{.Description}}</td><td class="num">{{money .UnitPrice}}</td><td class="num">{{money .Total}}</td></tr>
  {{end}}</tbody>
</table>
<div class="total"><div class="label">Total Final</div>{{money .Total}}</div>
<footer>Precios sujetos a variaciones sin previo aviso una vez vencida la validez de {{.ValidityDays}} días.</footer>
</body>
</html>
`))

// RenderHTML renders the printable A4 quote.
func RenderHTML(q *Quote) (string, error) {
	var buf bytes.Buffer
	if err := quoteTemplate.Execute(&buf, q); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderPDF renders the quote and converts it through the renderer.
func RenderPDF(ctx context.Context, renderer PDFRenderer, q *Quote) ([]byte, error) {
	html, err := RenderHTML(q)
	if err != nil {
		return nil, err
	}
	return renderer.RenderHTML(ctx, html, printing.A4)
}
