package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/aspire-solar/billdesk/internal/fiscal"
	"github.com/aspire-solar/billdesk/internal/shared"
)

// Stored column scales. Inputs finer than these would be rounded on insert
// and no longer reproduce the computed amounts.
const (
	lineScale    = 4
	percentScale = 2
)

type requestValidator struct {
	v *validator.Validate
}

func newRequestValidator() requestValidator {
	return requestValidator{v: shared.NewValidator()}
}

// validate checks req and reports every failing field at once.
func (rv requestValidator) validate(req *CreateRequest) error {
	trimRequest(req)
	err := shared.ValidateStruct(rv.v, req)
	extra := map[string]string{}
	if req.FinancialYear != "" {
		if ferr := fiscal.ValidateFinancialYear(req.FinancialYear); ferr != nil {
			extra["financialYear"] = "must look like 24-25"
		}
	}
	checkScale(extra, "cgstPercentage", req.CGSTPercentage, percentScale)
	checkScale(extra, "sgstPercentage", req.SGSTPercentage, percentScale)
	for i, line := range req.LineItems {
		checkScale(extra, fmt.Sprintf("lineItems[%d].rate", i), line.Rate, lineScale)
		checkScale(extra, fmt.Sprintf("lineItems[%d].quantity", i), line.Quantity, lineScale)
	}
	return shared.MergeFieldErrors(err, extra)
}

func checkScale(fields map[string]string, name string, v decimal.Decimal, places int32) {
	if !v.Equal(v.Truncate(places)) {
		fields[name] = fmt.Sprintf("must have at most %d decimal places", places)
	}
}

func trimRequest(req *CreateRequest) {
	req.ClientID = strings.TrimSpace(req.ClientID)
	req.ClientName = strings.TrimSpace(req.ClientName)
	req.FinancialYear = strings.TrimSpace(req.FinancialYear)
	req.WorkOrderReference = strings.TrimSpace(req.WorkOrderReference)
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.AddressLine1 = strings.TrimSpace(req.AddressLine1)
	req.AddressLine2 = strings.TrimSpace(req.AddressLine2)
	req.GSTNumber = strings.ToUpper(strings.TrimSpace(req.GSTNumber))
	for i := range req.LineItems {
		req.LineItems[i].Description = strings.TrimSpace(req.LineItems[i].Description)
		req.LineItems[i].HSNSACCode = strings.TrimSpace(req.LineItems[i].HSNSACCode)
		req.LineItems[i].Unit = strings.TrimSpace(req.LineItems[i].Unit)
	}
}

// parseDate reads an optional wire date. Empty input yields nil.
func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
