package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/facturo/facturo/internal/billing"
)

// InvoiceRenderer builds the invoice document HTML and hands it to Gotenberg
// for PDF conversion.
type InvoiceRenderer struct {
	client   *Client
	template *template.Template
	printer  *message.Printer
}

// NewInvoiceRenderer parses the invoice template at construction time.
func NewInvoiceRenderer(client *Client) (*InvoiceRenderer, error) {
	printer := message.NewPrinter(language.English)
	funcMap := template.FuncMap{
		"money": func(v float64) string {
			return printer.Sprintf("%.2f", v)
		},
		"formatDate": func(t any) string {
			switch v := t.(type) {
			case time.Time:
				if v.IsZero() {
					return ""
				}
				return v.Format("02 Jan 2006")
			case *time.Time:
				if v == nil || v.IsZero() {
					return ""
				}
				return v.Format("02 Jan 2006")
			}
			return ""
		},
		"percent": func(rate float64) string {
			return printer.Sprintf("%.2f%%", rate*100)
		},
		"sub": func(a, b float64) float64 {
			return a - b
		},
	}
	tpl, err := template.New("invoice").Funcs(funcMap).Parse(invoiceTemplate)
	if err != nil {
		return nil, err
	}
	return &InvoiceRenderer{client: client, template: tpl, printer: printer}, nil
}

// BuildHTML renders the invoice document markup.
func (r *InvoiceRenderer) BuildHTML(detail *billing.InvoiceDetail) (string, error) {
	if detail == nil {
		return "", fmt.Errorf("report: nil invoice detail")
	}
	var buf bytes.Buffer
	if err := r.template.Execute(&buf, detail); err != nil {
		return "", fmt.Errorf("report: render invoice %d: %w", detail.Number, err)
	}
	return buf.String(), nil
}

// RenderInvoice produces the PDF bytes for an invoice detail.
func (r *InvoiceRenderer) RenderInvoice(ctx context.Context, detail *billing.InvoiceDetail) ([]byte, error) {
	html, err := r.BuildHTML(detail)
	if err != nil {
		return nil, err
	}
	return r.client.RenderHTML(ctx, html)
}

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Invoice #{{ .Number }}</title>
<style>
  body { font-family: Helvetica, Arial, sans-serif; color: #1f2430; margin: 40px; }
  h1 { font-size: 22px; margin-bottom: 2px; }
  .meta { color: #5a6072; font-size: 13px; margin-bottom: 24px; }
  .parties { margin-bottom: 28px; font-size: 14px; }
  table { width: 100%; border-collapse: collapse; font-size: 13px; }
  th { text-align: left; border-bottom: 2px solid #1f2430; padding: 6px 4px; }
  td { border-bottom: 1px solid #d8dbe2; padding: 6px 4px; }
  td.num, th.num { text-align: right; }
  .totals { margin-top: 18px; width: 40%; margin-left: auto; font-size: 14px; }
  .totals td { border: none; padding: 3px 4px; }
  .totals .grand td { border-top: 2px solid #1f2430; font-weight: bold; }
  .status { display: inline-block; padding: 2px 10px; border-radius: 10px; font-size: 12px;
            background: #eef1f6; text-transform: uppercase; }
</style>
</head>
<body>
<h1>Invoice #{{ .Number }}</h1>
<div class="meta">
  Issued {{ formatDate .IssueDate }}{{ if .DueDate }} &middot; Due {{ formatDate .DueDate }}{{ end }}
  &middot; <span class="status">{{ .Status }}</span>
</div>
<div class="parties">
  <strong>Billed to</strong><br>
  {{ .Client.Name }}<br>
  {{ if .Client.Address }}{{ .Client.Address }}<br>{{ end }}
  {{ if .Client.Email }}{{ .Client.Email }}{{ end }}
</div>
<table>
  <thead>
    <tr><th>Description</th><th class="num">Unit price</th><th class="num">Qty</th><th class="num">Total</th></tr>
  </thead>
  <tbody>
    {{ range .Lines }}
    <tr>
      <td>{{ .Description }}</td>
      <td class="num">{{ money .UnitPrice }}</td>
      <td class="num">{{ .Quantity }}</td>
      <td class="num">{{ money .Total }}</td>
    </tr>
    {{ end }}
  </tbody>
</table>
<table class="totals">
  <tr><td>Subtotal</td><td class="num">{{ money .TotalHT }}</td></tr>
  <tr><td>Tax ({{ percent .TaxRate }})</td><td class="num">{{ money (sub .TotalTTC .TotalHT) }}</td></tr>
  <tr class="grand"><td>Total</td><td class="num">{{ money .TotalTTC }}</td></tr>
  <tr><td>Paid to date</td><td class="num">{{ money .PaidToDate }}</td></tr>
  <tr><td>Amount due</td><td class="num">{{ money .AmountDue }}</td></tr>
</table>
</body>
</html>`
