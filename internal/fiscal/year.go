// Package fiscal computes Indian financial-year labels and invoice numbers.
package fiscal

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// InvoicePrefix leads every invoice number.
const InvoicePrefix = "AS"

var (
	// ErrInvalidFinancialYear is returned for labels not shaped like "24-25".
	ErrInvalidFinancialYear = errors.New("fiscal: invalid financial year")
	// ErrInvalidInvoiceNumber is returned when an invoice number cannot be parsed.
	ErrInvalidInvoiceNumber = errors.New("fiscal: invalid invoice number")

	yearPattern   = regexp.MustCompile(`^(\d{2})-(\d{2})$`)
	numberPattern = regexp.MustCompile(`^` + InvoicePrefix + `/(\d{2}-\d{2})/(\d{3,})$`)
)

// CurrentFinancialYear returns the "YY-YY" label of the April-March year
// containing today.
func CurrentFinancialYear(today time.Time) string {
	start := today.Year()
	if today.Month() < time.April {
		start--
	}
	return fmt.Sprintf("%02d-%02d", start%100, (start+1)%100)
}

// StartYear returns the four digit calendar year the financial year begins in.
func StartYear(fy string, century int) (int, error) {
	if err := ValidateFinancialYear(fy); err != nil {
		return 0, err
	}
	yy, _ := strconv.Atoi(fy[:2])
	return century + yy, nil
}

// ValidateFinancialYear checks the "YY-YY" shape and that the second year
// follows the first.
func ValidateFinancialYear(fy string) error {
	m := yearPattern.FindStringSubmatch(fy)
	if m == nil {
		return fmt.Errorf("%w: %q", ErrInvalidFinancialYear, fy)
	}
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	if (first+1)%100 != second {
		return fmt.Errorf("%w: %q", ErrInvalidFinancialYear, fy)
	}
	return nil
}

// FormatInvoiceNumber renders AS/<fy>/<seq> with the sequence padded to three
// digits.
func FormatInvoiceNumber(fy string, seq int) string {
	return fmt.Sprintf("%s/%s/%03d", InvoicePrefix, fy, seq)
}

// ParseInvoiceNumber splits an invoice number into its financial year and
// sequence.
func ParseInvoiceNumber(number string) (string, int, error) {
	m := numberPattern.FindStringSubmatch(number)
	if m == nil {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidInvoiceNumber, number)
	}
	seq, err := strconv.Atoi(m[2])
	if err != nil || seq <= 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidInvoiceNumber, number)
	}
	return m[1], seq, nil
}
