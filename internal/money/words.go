// Package money holds the rupee helpers shared by invoices, ledgers and PDFs.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

var onesWords = [...]string{
	"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
	"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen",
	"Seventeen", "Eighteen", "Nineteen",
}

var tensWords = [...]string{
	"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety",
}

var hundred = decimal.NewFromInt(100)

// NumberToWordsIndian spells an amount in rupees and paise using the Indian
// crore/lakh/thousand grouping, e.g. "One Lakh Rupees Only". The phrasing is
// printed on issued invoices and must stay stable.
func NumberToWordsIndian(amount decimal.Decimal) string {
	amount = amount.Abs().Round(2)
	whole := amount.Truncate(0)
	rupees := whole.IntPart()
	paise := amount.Sub(whole).Mul(hundred).Round(0).IntPart()

	switch {
	case rupees == 0 && paise == 0:
		return "Zero Rupees Only"
	case rupees == 0:
		return belowHundred(paise) + " Paise Only"
	}

	var b strings.Builder
	b.WriteString(indianWords(rupees))
	b.WriteString(" Rupees")
	if paise > 0 {
		b.WriteString(" and ")
		b.WriteString(belowHundred(paise))
		b.WriteString(" Paise")
	}
	b.WriteString(" Only")
	return b.String()
}

func indianWords(n int64) string {
	if n == 0 {
		return ""
	}
	parts := make([]string, 0, 4)
	if crore := n / 10_000_000; crore > 0 {
		parts = append(parts, indianWords(crore)+" Crore")
	}
	if lakh := (n / 100_000) % 100; lakh > 0 {
		parts = append(parts, belowHundred(lakh)+" Lakh")
	}
	if thousand := (n / 1000) % 100; thousand > 0 {
		parts = append(parts, belowHundred(thousand)+" Thousand")
	}
	if rest := n % 1000; rest > 0 {
		parts = append(parts, belowThousand(rest))
	}
	return strings.Join(parts, " ")
}

func belowThousand(n int64) string {
	if n < 100 {
		return belowHundred(n)
	}
	words := onesWords[n/100] + " Hundred"
	if rest := n % 100; rest > 0 {
		words += " " + belowHundred(rest)
	}
	return words
}

func belowHundred(n int64) string {
	if n < 20 {
		return onesWords[n]
	}
	words := tensWords[n/10]
	if n%10 != 0 {
		words += " " + onesWords[n%10]
	}
	return words
}
