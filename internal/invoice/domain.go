// Package invoice creates GST tax invoices: it validates requests, derives
// tax and totals, numbers invoices per financial year and attaches the
// rendered PDF.
package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// Customer is the billed party as printed on the invoice.
type Customer struct {
	CompanyName  string `json:"companyName"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Pin          string `json:"pin,omitempty"`
	GSTNumber    string `json:"gstNumber,omitempty"`
}

// LineItem is one billed row. Amount is Rate x Quantity x 1000 since rate is
// per Wp and quantity is in kWp.
type LineItem struct {
	ID           string          `json:"id,omitempty"`
	SerialNumber int             `json:"serialNumber"`
	Description  string          `json:"description"`
	HSNSACCode   string          `json:"hsnSacCode"`
	Rate         decimal.Decimal `json:"rate"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	Amount       decimal.Decimal `json:"amount"`
}

// Invoice is a persisted tax invoice.
type Invoice struct {
	ID                 string          `json:"id"`
	ClientID           *string         `json:"clientId,omitempty"`
	ClientName         string          `json:"clientName,omitempty"`
	InvoiceNumber      string          `json:"invoiceNumber"`
	FinancialYear      string          `json:"financialYear"`
	InvoiceDate        time.Time       `json:"invoiceDate"`
	WorkOrderReference string          `json:"workOrderReference"`
	WorkOrderDate      *time.Time      `json:"workOrderDate,omitempty"`
	Customer           Customer        `json:"customer"`
	LineItems          []LineItem      `json:"lineItems"`
	TotalBasicAmount   decimal.Decimal `json:"totalBasicAmount"`
	CGSTPercentage     decimal.Decimal `json:"cgstPercentage"`
	CGSTAmount         decimal.Decimal `json:"cgstAmount"`
	SGSTPercentage     decimal.Decimal `json:"sgstPercentage"`
	SGSTAmount         decimal.Decimal `json:"sgstAmount"`
	GrandTotal         decimal.Decimal `json:"grandTotal"`
	AmountInWords      string          `json:"amountInWords"`
	FileName           string          `json:"fileName,omitempty"`
	FileURL            string          `json:"fileUrl,omitempty"`
	CreatedBy          *string         `json:"createdBy,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// TaxAmount is the combined CGST and SGST.
func (inv *Invoice) TaxAmount() decimal.Decimal {
	return inv.CGSTAmount.Add(inv.SGSTAmount)
}

// HasDocument reports whether a rendered PDF is attached.
func (inv *Invoice) HasDocument() bool {
	return inv.FileName != ""
}

// DocumentName is the PDF file name offered for download.
func (inv *Invoice) DocumentName() string {
	name := []byte(inv.InvoiceNumber)
	for i, c := range name {
		if c == '/' {
			name[i] = '-'
		}
	}
	return "invoice-" + string(name) + ".pdf"
}

// LineItemRequest is one requested row before computation.
type LineItemRequest struct {
	Description string          `json:"description" validate:"required,max=500"`
	HSNSACCode  string          `json:"hsnSacCode" validate:"max=20"`
	Rate        decimal.Decimal `json:"rate" validate:"gt=0"`
	Quantity    decimal.Decimal `json:"quantity" validate:"gt=0"`
	Unit        string          `json:"unit" validate:"max=20"`
}

// CreateRequest carries everything needed to raise an invoice.
type CreateRequest struct {
	ClientID           string            `json:"clientId" validate:"omitempty,uuid"`
	ClientName         string            `json:"clientName" validate:"max=200"`
	FinancialYear      string            `json:"financialYear"`
	InvoiceDate        string            `json:"invoiceDate" validate:"omitempty,datetime=2006-01-02"`
	WorkOrderReference string            `json:"workOrderReference" validate:"required,max=200"`
	WorkOrderDate      string            `json:"workOrderDate" validate:"omitempty,datetime=2006-01-02"`
	CompanyName        string            `json:"companyName" validate:"required,max=200"`
	AddressLine1       string            `json:"addressLine1" validate:"required,max=300"`
	AddressLine2       string            `json:"addressLine2" validate:"max=300"`
	City               string            `json:"city" validate:"max=100"`
	State              string            `json:"state" validate:"max=100"`
	Pin                string            `json:"pin" validate:"max=10"`
	GSTNumber          string            `json:"gstNumber" validate:"max=20"`
	CGSTPercentage     decimal.Decimal   `json:"cgstPercentage" validate:"gte=0,lte=100"`
	SGSTPercentage     decimal.Decimal   `json:"sgstPercentage" validate:"gte=0,lte=100"`
	LineItems          []LineItemRequest `json:"lineItems" validate:"required,min=1,dive"`
	CreatedBy          string            `json:"-"`
}

// CreateResult is the outcome of invoice creation. Warnings is non-empty when
// the invoice was stored but its document could not be attached.
type CreateResult struct {
	Invoice  *Invoice `json:"invoice"`
	Warnings []string `json:"warnings,omitempty"`
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	ClientID      string
	FinancialYear string
	// MissingDocument keeps only invoices without an attached PDF.
	MissingDocument bool
	Limit           int
	Offset          int
}
