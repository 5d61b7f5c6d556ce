package invoice

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aspire-solar/billdesk/internal/money"
)

// ErrComputation reports inputs that slipped past validation and cannot be
// computed.
var ErrComputation = errors.New("invoice: computation failed")

var (
	wattsPerKilowatt = decimal.NewFromInt(1000)
	hundred          = decimal.NewFromInt(100)
)

// ComputeInput is the pure input of Compute.
type ComputeInput struct {
	Lines          []LineItemRequest
	CGSTPercentage decimal.Decimal
	SGSTPercentage decimal.Decimal
}

// Computation holds everything derived from line items and tax rates.
type Computation struct {
	LineItems        []LineItem
	TotalBasicAmount decimal.Decimal
	CGSTAmount       decimal.Decimal
	SGSTAmount       decimal.Decimal
	TaxAmount        decimal.Decimal
	GrandTotal       decimal.Decimal
	AmountInWords    string
	TaxAmountInWords string
}

// LineAmount returns rate x quantity x 1000 rounded to paise.
func LineAmount(rate, quantity decimal.Decimal) decimal.Decimal {
	return money.Round2(rate.Mul(quantity).Mul(wattsPerKilowatt))
}

// TaxOn returns the tax at percentage on base, rounded at amount level.
func TaxOn(base, percentage decimal.Decimal) decimal.Decimal {
	return money.Round2(base.Mul(percentage).Div(hundred))
}

// Compute derives line amounts, taxes, the grand total and the amount in
// words. It has no side effects.
func Compute(in ComputeInput) (Computation, error) {
	if len(in.Lines) == 0 {
		return Computation{}, fmt.Errorf("%w: no line items", ErrComputation)
	}
	if in.CGSTPercentage.IsNegative() || in.SGSTPercentage.IsNegative() {
		return Computation{}, fmt.Errorf("%w: negative tax percentage", ErrComputation)
	}

	out := Computation{LineItems: make([]LineItem, 0, len(in.Lines))}
	total := decimal.Zero
	for i, line := range in.Lines {
		if !line.Rate.IsPositive() || !line.Quantity.IsPositive() {
			return Computation{}, fmt.Errorf("%w: line %d has non-positive rate or quantity", ErrComputation, i+1)
		}
		amount := LineAmount(line.Rate, line.Quantity)
		total = total.Add(amount)
		out.LineItems = append(out.LineItems, LineItem{
			SerialNumber: i + 1,
			Description:  line.Description,
			HSNSACCode:   line.HSNSACCode,
			Rate:         line.Rate,
			Quantity:     line.Quantity,
			Unit:         line.Unit,
			Amount:       amount,
		})
	}

	out.TotalBasicAmount = total
	out.CGSTAmount = TaxOn(total, in.CGSTPercentage)
	out.SGSTAmount = TaxOn(total, in.SGSTPercentage)
	out.TaxAmount = out.CGSTAmount.Add(out.SGSTAmount)
	out.GrandTotal = total.Add(out.TaxAmount)
	out.AmountInWords = money.NumberToWordsIndian(out.GrandTotal)
	out.TaxAmountInWords = money.NumberToWordsIndian(out.TaxAmount)
	return out, nil
}
