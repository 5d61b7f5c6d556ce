// Package clients manages billed companies, the payments they make and the
// balance still due from each of them.
package clients

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aspire-solar/billdesk/internal/platform/httpx"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// ErrNotFound indicates the client does not exist.
var ErrNotFound = fmt.Errorf("clients: client %w", httpx.ErrNotFound)

// Client is a billed company.
type Client struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	AddressLine1  string    `json:"addressLine1"`
	AddressLine2  string    `json:"addressLine2,omitempty"`
	City          string    `json:"city,omitempty"`
	State         string    `json:"state,omitempty"`
	Pin           string    `json:"pin,omitempty"`
	GSTNumber     string    `json:"gstNumber,omitempty"`
	PANNumber     string    `json:"panNumber,omitempty"`
	ContactPerson string    `json:"contactPerson,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Email         string    `json:"email,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NameOwner picks the client that owns an invoice linked only by name. Of
// the clients carrying that name the earliest created wins, ties broken by
// id, so an invoice is never counted against two clients.
func NameOwner(clients []Client, name string) (string, bool) {
	var owner *Client
	for i := range clients {
		c := &clients[i]
		if name == "" || c.Name != name {
			continue
		}
		if owner == nil || c.CreatedAt.Before(owner.CreatedAt) ||
			(c.CreatedAt.Equal(owner.CreatedAt) && c.ID < owner.ID) {
			owner = c
		}
	}
	if owner == nil {
		return "", false
	}
	return owner.ID, true
}

// Payment is money received from a client.
type Payment struct {
	ID        string          `json:"id"`
	ClientID  string          `json:"clientId"`
	Amount    decimal.Decimal `json:"amount"`
	Date      time.Time       `json:"paymentDate"`
	Mode      string          `json:"mode,omitempty"`
	Reference string          `json:"reference,omitempty"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Balance is the derived position of one client. DueAmount is negative when
// the client has paid more than it was invoiced.
type Balance struct {
	ClientID           string          `json:"clientId"`
	Name               string          `json:"name"`
	TotalInvoiceAmount decimal.Decimal `json:"totalInvoiceAmount"`
	TotalPayments      decimal.Decimal `json:"totalPayments"`
	DueAmount          decimal.Decimal `json:"dueAmount"`
}

// InCredit reports whether the client has overpaid.
func (b Balance) InCredit() bool {
	return b.DueAmount.IsNegative()
}

// DueOverview aggregates balances across clients.
//
// TotalDue is the plain sum of every DueAmount, so a client in credit offsets
// what other clients owe. TotalOutstanding only counts positive balances.
type DueOverview struct {
	Clients          []Balance       `json:"clients"`
	TotalDue         decimal.Decimal `json:"totalDue"`
	TotalOutstanding decimal.Decimal `json:"totalOutstanding"`
	TotalCredit      decimal.Decimal `json:"totalCredit"`
	ClientsInCredit  int             `json:"clientsInCredit"`
}

// NewBalance derives a client's due amount.
func NewBalance(c Client, invoiced, paid decimal.Decimal) Balance {
	return Balance{
		ClientID:           c.ID,
		Name:               c.Name,
		TotalInvoiceAmount: invoiced,
		TotalPayments:      paid,
		DueAmount:          invoiced.Sub(paid),
	}
}

// Aggregate folds balances into an overview.
func Aggregate(balances []Balance) DueOverview {
	o := DueOverview{
		Clients:          balances,
		TotalDue:         decimal.Zero,
		TotalOutstanding: decimal.Zero,
		TotalCredit:      decimal.Zero,
	}
	if o.Clients == nil {
		o.Clients = []Balance{}
	}
	for _, b := range balances {
		o.TotalDue = o.TotalDue.Add(b.DueAmount)
		switch {
		case b.DueAmount.IsPositive():
			o.TotalOutstanding = o.TotalOutstanding.Add(b.DueAmount)
		case b.InCredit():
			o.TotalCredit = o.TotalCredit.Add(b.DueAmount.Neg())
			o.ClientsInCredit++
		}
	}
	return o
}

// Request creates or replaces a client.
type Request struct {
	Name          string `json:"name" validate:"required,max=200"`
	AddressLine1  string `json:"addressLine1" validate:"max=300"`
	AddressLine2  string `json:"addressLine2" validate:"max=300"`
	City          string `json:"city" validate:"max=100"`
	State         string `json:"state" validate:"max=100"`
	Pin           string `json:"pin" validate:"omitempty,numeric,len=6"`
	GSTNumber     string `json:"gstNumber" validate:"omitempty,len=15,alphanum"`
	PANNumber     string `json:"panNumber" validate:"omitempty,len=10,alphanum"`
	ContactPerson string `json:"contactPerson" validate:"max=200"`
	Phone         string `json:"phone" validate:"max=20"`
	Email         string `json:"email" validate:"omitempty,email"`
}

func (r Request) apply(c *Client) {
	c.Name = r.Name
	c.AddressLine1 = r.AddressLine1
	c.AddressLine2 = r.AddressLine2
	c.City = r.City
	c.State = r.State
	c.Pin = r.Pin
	c.GSTNumber = r.GSTNumber
	c.PANNumber = r.PANNumber
	c.ContactPerson = r.ContactPerson
	c.Phone = r.Phone
	c.Email = r.Email
}

// PaymentRequest records money received from a client.
type PaymentRequest struct {
	ClientID  string          `json:"-"`
	Amount    decimal.Decimal `json:"amount" validate:"gt=0"`
	Date      string          `json:"paymentDate" validate:"required,datetime=2006-01-02"`
	Mode      string          `json:"mode" validate:"max=50"`
	Reference string          `json:"reference" validate:"max=100"`
	Notes     string          `json:"notes" validate:"max=500"`
}
