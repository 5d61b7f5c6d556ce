// Package export draws the A4 tax invoice PDF.
package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aspire-solar/billdesk/internal/invoice"
	"github.com/aspire-solar/billdesk/internal/money"
	"github.com/aspire-solar/billdesk/internal/settings"
	"github.com/aspire-solar/billdesk/internal/storage"
)

// PrintDateLayout is how dates appear on the document.
const PrintDateLayout = "02-01-2006"

// Page geometry in millimetres.
const (
	pageWidth     = 210.0
	pageHeight    = 297.0
	marginLeft    = 10.0
	marginTop     = 10.0
	marginRight   = 10.0
	marginBottom  = 18.0
	contentWidth  = pageWidth - marginLeft - marginRight
	lineHeight    = 5.0
	rowHeight     = 7.0
	logoX         = marginLeft
	logoY         = marginTop
	logoSize      = 26.0
	wordmarkX     = marginLeft + logoSize + 4
	headerRuleY   = 44.0
	customerWidth = 115.0
	metaX         = marginLeft + customerWidth + 5
	metaWidth     = contentWidth - customerWidth - 5
	stampWidth    = 32.0
	stampHeight   = 20.0
	footerY       = pageHeight - 12
)

// Item table columns: S.No, Description, HSN/SAC, Rate, Quantity, Amount.
var itemColumns = [6]float64{12, 80, 22, 22, 24, 30}

var itemHeaders = [6]string{"S.No", "Description", "HSN/SAC", "Rate", "Quantity", "Amount"}

// Account and signature blocks share a row.
const (
	accountLabelWidth = 30.0
	accountValueWidth = 70.0
	signatureX        = marginLeft + accountLabelWidth + accountValueWidth + 10
	signatureWidth    = contentWidth - accountLabelWidth - accountValueWidth - 10
)

// Assets carries the optional branding images as raw PNG or JPEG bytes.
type Assets struct {
	Logo  []byte
	Stamp []byte
}

// Image is a placed raster image. Type is the gofpdf image type name.
type Image struct {
	Name string
	Type string
	Data []byte
	X, Y float64
	W, H float64
}

// Row is a label and value pair.
type Row struct {
	Label string
	Value string
}

// ItemRow is one rendered line item.
type ItemRow struct {
	Cells [6]string
}

// Letterhead is the company block at the top of the page.
type Letterhead struct {
	Logo              *Image
	WordmarkPrimary   string
	WordmarkSecondary string
	AddressLines      []string
	Contact           string
}

// Signature is the block beside the account details.
type Signature struct {
	For   string
	Stamp *Image
	Name  string
	Title string
}

// Layout is everything the renderer draws, already formatted.
type Layout struct {
	DocumentTitle string
	CreatedAt     time.Time
	Letterhead    Letterhead
	Title         string
	Customer      []string
	Meta          []Row
	WorkOrderLine string
	Items         []ItemRow
	Totals        []Row
	AmountInWords string
	TaxHeaders    []string
	TaxValues     []string
	TaxInWords    string
	Account       []Row
	Signature     Signature
	Footer        string
}

// BuildLayout formats inv for printing with the company profile s.
func BuildLayout(inv *invoice.Invoice, s *settings.Settings, assets Assets) Layout {
	cgstLabel := "CGST @ " + money.FormatPercent(inv.CGSTPercentage) + "%"
	sgstLabel := "SGST @ " + money.FormatPercent(inv.SGSTPercentage) + "%"
	tax := inv.TaxAmount()

	l := Layout{
		DocumentTitle: "Tax Invoice " + inv.InvoiceNumber,
		CreatedAt:     inv.InvoiceDate.UTC(),
		Letterhead: Letterhead{
			Logo:              placeImage("logo", assets.Logo, logoX, logoY, logoSize, logoSize),
			WordmarkPrimary:   s.WordmarkPrimary,
			WordmarkSecondary: s.WordmarkSecondary,
			AddressLines:      nonEmpty(s.AddressLine1, s.AddressLine2),
			Contact:           contactLine(s),
		},
		Title:         "Tax Invoice",
		Customer:      customerLines(inv.Customer),
		Meta:          metaRows(inv),
		WorkOrderLine: workOrderLine(inv),
		Totals: []Row{
			{Label: "Total Basic Amount", Value: money.FormatAmount(inv.TotalBasicAmount)},
			{Label: cgstLabel, Value: money.FormatAmount(inv.CGSTAmount)},
			{Label: sgstLabel, Value: money.FormatAmount(inv.SGSTAmount)},
			{Label: "Grand Total", Value: money.FormatAmount(inv.GrandTotal)},
		},
		AmountInWords: "Amount in words: " + money.NumberToWordsIndian(inv.GrandTotal),
		TaxHeaders:    []string{"Taxable Value", cgstLabel, sgstLabel, "Total Tax"},
		TaxValues: []string{
			money.FormatAmount(inv.TotalBasicAmount),
			money.FormatAmount(inv.CGSTAmount),
			money.FormatAmount(inv.SGSTAmount),
			money.FormatAmount(tax),
		},
		TaxInWords: "Tax amount in words: " + money.NumberToWordsIndian(tax),
		Account: []Row{
			{Label: "Bank", Value: s.BankName},
			{Label: "A/c No.", Value: s.AccountNumber},
			{Label: "IFSC", Value: s.IFSCCode},
			{Label: "Branch", Value: s.Branch},
		},
		Signature: Signature{
			For:   "For " + s.CompanyName,
			Stamp: placeImage("stamp", assets.Stamp, signatureX+(signatureWidth-stampWidth)/2, 0, stampWidth, stampHeight),
			Name:  s.ProprietorName,
			Title: "Proprietor",
		},
		Footer: "GSTIN: " + s.GSTNumber,
	}
	for _, item := range inv.LineItems {
		l.Items = append(l.Items, ItemRow{Cells: [6]string{
			strconv.Itoa(item.SerialNumber),
			item.Description,
			item.HSNSACCode,
			formatRate(item.Rate),
			strings.TrimSpace(item.Quantity.String() + " " + item.Unit),
			money.FormatAmount(item.Amount),
		}})
	}
	return l
}

// placeImage returns nil when data is missing or not a PNG or JPEG, so the
// renderer simply leaves the box empty.
func placeImage(name string, data []byte, x, y, w, h float64) *Image {
	if len(data) == 0 {
		return nil
	}
	mime, err := storage.Detect(data, storage.ImageTypes)
	if err != nil {
		return nil
	}
	typ := "PNG"
	if mime.Is("image/jpeg") {
		typ = "JPG"
	}
	return &Image{Name: name, Type: typ, Data: data, X: x, Y: y, W: w, H: h}
}

func customerLines(c invoice.Customer) []string {
	lines := []string{"To,", c.CompanyName}
	lines = append(lines, nonEmpty(c.AddressLine1, c.AddressLine2)...)
	cityLine := strings.TrimSpace(strings.Join(nonEmpty(c.City, c.State), ", "))
	if c.Pin != "" {
		cityLine = strings.TrimSpace(cityLine + " - " + c.Pin)
	}
	if cityLine != "" {
		lines = append(lines, cityLine)
	}
	if c.GSTNumber != "" {
		lines = append(lines, "GSTIN: "+c.GSTNumber)
	}
	return lines
}

func metaRows(inv *invoice.Invoice) []Row {
	rows := []Row{
		{Label: "Date", Value: inv.InvoiceDate.Format(PrintDateLayout)},
		{Label: "Invoice No.", Value: inv.InvoiceNumber},
	}
	if inv.WorkOrderDate != nil {
		rows = append(rows, Row{Label: "W.O. Date", Value: inv.WorkOrderDate.Format(PrintDateLayout)})
	}
	return rows
}

func workOrderLine(inv *invoice.Invoice) string {
	line := "Work Order Ref: " + inv.WorkOrderReference
	if inv.WorkOrderDate != nil {
		line += " dated " + inv.WorkOrderDate.Format(PrintDateLayout)
	}
	return line
}

func contactLine(s *settings.Settings) string {
	var parts []string
	if s.Phone != "" {
		parts = append(parts, "Ph: "+s.Phone)
	}
	if s.Email != "" {
		parts = append(parts, "Email: "+s.Email)
	}
	return strings.Join(parts, " | ")
}

// formatRate keeps two decimals unless the rate carries finer precision.
func formatRate(rate decimal.Decimal) string {
	if rate.Exponent() < -2 && !rate.Equal(rate.Round(2)) {
		return rate.String()
	}
	return rate.StringFixed(2)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
