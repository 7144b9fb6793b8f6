// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/storefront-backend/internal/config"
)

// Service handles PDF generation
type Service struct {
	company CompanyInfo
	tmpl    *template.Template
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		company: CompanyInfo{
			Name:    cfg.App.CompanyName,
			Address: cfg.App.CompanyAddress,
			Email:   cfg.App.CompanyEmail,
		},
		tmpl: template.Must(template.New("invoice").Parse(invoiceTemplate)),
	}
}

// Invoice is everything printed on an order invoice. Amounts are
// preformatted so the template never does arithmetic.
type Invoice struct {
	OrderNumber       string
	OrderDate         time.Time
	Status            string
	PaymentMethod     string
	PaymentStatus     string
	CustomerName      string
	CustomerEmail     string
	ShipTo            []string
	Lines             []InvoiceLine
	Subtotal          string
	Shipping          string
	Total             string
	EstimatedDelivery time.Time
}

// InvoiceLine is one purchased item
type InvoiceLine struct {
	Name     string
	Variant  string
	Quantity int
	Price    string
	Total    string
}

// CompanyInfo represents company information
type CompanyInfo struct {
	Name    string
	Address string
	Email   string
}

type invoiceData struct {
	InvoiceNumber string
	InvoiceDate   string
	Invoice       *Invoice
	Company       CompanyInfo
}

// GenerateInvoice renders inv and converts it to PDF with wkhtmltopdf
func (s *Service) GenerateInvoice(inv *Invoice) ([]byte, error) {
	htmlContent, err := s.RenderHTML(inv)
	if err != nil {
		return nil, err
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}
	return pdfg.Bytes(), nil
}

// RenderHTML produces the invoice markup fed to the PDF converter
func (s *Service) RenderHTML(inv *Invoice) (string, error) {
	data := invoiceData{
		InvoiceNumber: "INV-" + inv.OrderNumber,
		InvoiceDate:   time.Now().UTC().Format("January 2, 2006"),
		Invoice:       inv,
		Company:       s.company,
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute invoice template: %w", err)
	}
	return buf.String(), nil
}

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Invoice {{.InvoiceNumber}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #333; }
        .header { overflow: hidden; margin-bottom: 30px; border-bottom: 2px solid #eee; padding-bottom: 20px; }
        .company-info { float: left; }
        .invoice-info { float: right; text-align: right; }
        .invoice-title { font-size: 28px; font-weight: bold; color: #2563eb; margin-bottom: 10px; }
        .section-title { font-size: 16px; font-weight: bold; margin-bottom: 10px; color: #374151; }
        .items-table { width: 100%; border-collapse: collapse; margin: 30px 0; }
        .items-table th, .items-table td { border: 1px solid #ddd; padding: 10px 8px; text-align: left; }
        .items-table th { background-color: #f8f9fa; }
        .num { text-align: right; width: 90px; }
        .totals { float: right; width: 300px; }
        .totals td { padding: 8px; border-bottom: 1px solid #eee; text-align: right; }
        .total-row td { font-size: 18px; font-weight: bold; border-top: 2px solid #333; }
        .footer { clear: both; margin-top: 50px; padding-top: 20px; border-top: 1px solid #eee; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="header">
        <div class="company-info">
            <h1>{{.Company.Name}}</h1>
            {{if .Company.Address}}<p>{{.Company.Address}}</p>{{end}}
            {{if .Company.Email}}<p>{{.Company.Email}}</p>{{end}}
        </div>
        <div class="invoice-info">
            <div class="invoice-title">INVOICE</div>
            <p><strong>Invoice #:</strong> {{.InvoiceNumber}}</p>
            <p><strong>Invoice Date:</strong> {{.InvoiceDate}}</p>
            <p><strong>Order #:</strong> {{.Invoice.OrderNumber}}</p>
            <p><strong>Order Date:</strong> {{.Invoice.OrderDate.Format "January 2, 2006"}}</p>
            <p><strong>Status:</strong> {{.Invoice.Status}}</p>
        </div>
    </div>

    <div class="section-title">Ship To:</div>
    <p><strong>{{.Invoice.CustomerName}}</strong> ({{.Invoice.CustomerEmail}})</p>
    {{range .Invoice.ShipTo}}<p>{{.}}</p>{{end}}
    <p>Estimated delivery: {{.Invoice.EstimatedDelivery.Format "January 2, 2006"}}</p>
    <p>Payment: {{.Invoice.PaymentMethod}} ({{.Invoice.PaymentStatus}})</p>

    <table class="items-table">
        <thead>
            <tr><th>Item</th><th class="num">Qty</th><th class="num">Price</th><th class="num">Total</th></tr>
        </thead>
        <tbody>
            {{range .Invoice.Lines}}
            <tr>
                <td><strong>{{.Name}}</strong>{{if .Variant}}<br><small>{{.Variant}}</small>{{end}}</td>
                <td class="num">{{.Quantity}}</td>
                <td class="num">${{.Price}}</td>
                <td class="num">${{.Total}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <div class="totals">
        <table>
            <tr><td>Subtotal:</td><td>${{.Invoice.Subtotal}}</td></tr>
            <tr><td>Shipping:</td><td>${{.Invoice.Shipping}}</td></tr>
            <tr class="total-row"><td>Total:</td><td>${{.Invoice.Total}}</td></tr>
        </table>
    </div>

    <div class="footer">
        <p>Thank you for your business!</p>
        {{if .Company.Email}}<p>Questions about this invoice? Contact us at {{.Company.Email}}</p>{{end}}
    </div>
</body>
</html>
`
