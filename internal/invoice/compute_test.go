package invoice

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeTotals(t *testing.T) {
	comp, err := Compute(ComputeInput{
		Lines: []LineItemRequest{
			{Description: "Solar modules 540Wp", HSNSACCode: "8541", Rate: d("24.50"), Quantity: d("10"), Unit: "kWp"},
			{Description: "Installation", HSNSACCode: "9954", Rate: d("3.25"), Quantity: d("10"), Unit: "kWp"},
		},
		CGSTPercentage: d("9"),
		SGSTPercentage: d("9"),
	})
	require.NoError(t, err)

	require.Len(t, comp.LineItems, 2)
	assert.Equal(t, 1, comp.LineItems[0].SerialNumber)
	assert.Equal(t, 2, comp.LineItems[1].SerialNumber)
	assert.Equal(t, "245000.00", comp.LineItems[0].Amount.StringFixed(2))
	assert.Equal(t, "32500.00", comp.LineItems[1].Amount.StringFixed(2))
	assert.Equal(t, "277500.00", comp.TotalBasicAmount.StringFixed(2))
	assert.Equal(t, "24975.00", comp.CGSTAmount.StringFixed(2))
	assert.Equal(t, "24975.00", comp.SGSTAmount.StringFixed(2))
	assert.Equal(t, "49950.00", comp.TaxAmount.StringFixed(2))
	assert.Equal(t, "327450.00", comp.GrandTotal.StringFixed(2))
	assert.Equal(t, "Three Lakh Twenty Seven Thousand Four Hundred Fifty Rupees Only", comp.AmountInWords)
	assert.Equal(t, "Forty Nine Thousand Nine Hundred Fifty Rupees Only", comp.TaxAmountInWords)
}

func TestComputeRoundsTaxAtAmountLevel(t *testing.T) {
	comp, err := Compute(ComputeInput{
		Lines:          []LineItemRequest{{Description: "Panel", Rate: d("0.5"), Quantity: d("1.111")}},
		CGSTPercentage: d("9"),
		SGSTPercentage: d("9"),
	})
	require.NoError(t, err)
	assert.Equal(t, "555.50", comp.TotalBasicAmount.StringFixed(2))
	// 555.50 x 9% = 49.995
	assert.Equal(t, "50.00", comp.CGSTAmount.StringFixed(2))
	assert.Equal(t, "50.00", comp.SGSTAmount.StringFixed(2))
	assert.Equal(t, "655.50", comp.GrandTotal.StringFixed(2))
	assert.Equal(t, "Six Hundred Fifty Five Rupees and Fifty Paise Only", comp.AmountInWords)
}

func TestComputeIdentities(t *testing.T) {
	tolerance := d("0.01")
	rates := []string{"0.01", "1", "2.75", "24.5", "33.333"}
	quantities := []string{"0.5", "1", "3.3", "10", "125.125"}
	percentages := [][2]string{{"0", "0"}, {"2.5", "2.5"}, {"6", "6"}, {"9", "9"}, {"14", "14"}}

	for _, pct := range percentages {
		var lines []LineItemRequest
		exact := decimal.Zero
		for i, rate := range rates {
			lines = append(lines, LineItemRequest{Description: "row", Rate: d(rate), Quantity: d(quantities[i])})
			exact = exact.Add(d(rate).Mul(d(quantities[i])).Mul(decimal.NewFromInt(1000)))
		}
		comp, err := Compute(ComputeInput{Lines: lines, CGSTPercentage: d(pct[0]), SGSTPercentage: d(pct[1])})
		require.NoError(t, err)

		assert.True(t, comp.TotalBasicAmount.Sub(exact).Abs().LessThanOrEqual(tolerance),
			"basic %s vs exact %s", comp.TotalBasicAmount, exact)

		base := comp.TotalBasicAmount
		expectedGrand := base.
			Add(base.Mul(d(pct[0])).Div(decimal.NewFromInt(100))).
			Add(base.Mul(d(pct[1])).Div(decimal.NewFromInt(100)))
		assert.True(t, comp.GrandTotal.Sub(expectedGrand).Abs().LessThanOrEqual(tolerance),
			"grand %s vs %s", comp.GrandTotal, expectedGrand)
		assert.True(t, comp.GrandTotal.Equal(comp.TotalBasicAmount.Add(comp.CGSTAmount).Add(comp.SGSTAmount)))
	}
}

func TestComputeRejectsImpossibleInput(t *testing.T) {
	_, err := Compute(ComputeInput{})
	require.ErrorIs(t, err, ErrComputation)

	_, err = Compute(ComputeInput{Lines: []LineItemRequest{{Description: "x", Rate: d("0"), Quantity: d("1")}}})
	require.ErrorIs(t, err, ErrComputation)

	_, err = Compute(ComputeInput{
		Lines:          []LineItemRequest{{Description: "x", Rate: d("1"), Quantity: d("1")}},
		CGSTPercentage: d("-1"),
	})
	require.ErrorIs(t, err, ErrComputation)
}

func TestDocumentName(t *testing.T) {
	inv := &Invoice{InvoiceNumber: "AS/24-25/007"}
	assert.Equal(t, "invoice-AS-24-25-007.pdf", inv.DocumentName())
	assert.False(t, inv.HasDocument())
}
