// Package settings keeps the company profile printed on every invoice.
package settings

import (
	"fmt"
	"time"

	"github.com/aspire-solar/billdesk/internal/platform/httpx"
)

// ErrNotFound means Ensure has not been run against the store yet.
var ErrNotFound = fmt.Errorf("settings: not initialised: %w", httpx.ErrNotFound)

// ImageKind names a branding image slot.
type ImageKind string

const (
	ImageLogo  ImageKind = "logo"
	ImageStamp ImageKind = "stamp"
)

// Settings is the company profile singleton.
type Settings struct {
	CompanyName       string    `json:"companyName"`
	WordmarkPrimary   string    `json:"wordmarkPrimary"`
	WordmarkSecondary string    `json:"wordmarkSecondary"`
	AddressLine1      string    `json:"addressLine1"`
	AddressLine2      string    `json:"addressLine2"`
	Phone             string    `json:"phone"`
	Email             string    `json:"email"`
	GSTNumber         string    `json:"gstNumber"`
	ProprietorName    string    `json:"proprietorName"`
	BankName          string    `json:"bankName"`
	AccountNumber     string    `json:"accountNumber"`
	IFSCCode          string    `json:"ifscCode"`
	Branch            string    `json:"branch"`
	LogoFile          string    `json:"logoFile,omitempty"`
	StampFile         string    `json:"stampFile,omitempty"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Image returns the stored file name for kind.
func (s *Settings) Image(kind ImageKind) string {
	switch kind {
	case ImageLogo:
		return s.LogoFile
	case ImageStamp:
		return s.StampFile
	}
	return ""
}

// Defaults is the profile written when no settings row exists.
func Defaults() Settings {
	return Settings{
		CompanyName:       "Aspire Solar",
		WordmarkPrimary:   "ASPIRE",
		WordmarkSecondary: "SOLAR",
		AddressLine1:      "Address line 1",
		AddressLine2:      "Address line 2",
		Phone:             "+91 00000 00000",
		Email:             "accounts@example.com",
		GSTNumber:         "GSTIN-NOT-SET",
		ProprietorName:    "Proprietor",
		BankName:          "Bank name",
		AccountNumber:     "0000000000",
		IFSCCode:          "IFSC0000000",
		Branch:            "Branch",
	}
}

// UpdateRequest replaces the editable text fields.
type UpdateRequest struct {
	CompanyName       string `json:"companyName" validate:"required,max=200"`
	WordmarkPrimary   string `json:"wordmarkPrimary" validate:"max=60"`
	WordmarkSecondary string `json:"wordmarkSecondary" validate:"max=60"`
	AddressLine1      string `json:"addressLine1" validate:"required,max=300"`
	AddressLine2      string `json:"addressLine2" validate:"max=300"`
	Phone             string `json:"phone" validate:"max=40"`
	Email             string `json:"email" validate:"omitempty,email"`
	GSTNumber         string `json:"gstNumber" validate:"required,max=20"`
	ProprietorName    string `json:"proprietorName" validate:"required,max=200"`
	BankName          string `json:"bankName" validate:"max=200"`
	AccountNumber     string `json:"accountNumber" validate:"max=40"`
	IFSCCode          string `json:"ifscCode" validate:"omitempty,len=11"`
	Branch            string `json:"branch" validate:"max=200"`
}

func (r UpdateRequest) apply(s *Settings) {
	s.CompanyName = r.CompanyName
	s.WordmarkPrimary = r.WordmarkPrimary
	s.WordmarkSecondary = r.WordmarkSecondary
	s.AddressLine1 = r.AddressLine1
	s.AddressLine2 = r.AddressLine2
	s.Phone = r.Phone
	s.Email = r.Email
	s.GSTNumber = r.GSTNumber
	s.ProprietorName = r.ProprietorName
	s.BankName = r.BankName
	s.AccountNumber = r.AccountNumber
	s.IFSCCode = r.IFSCCode
	s.Branch = r.Branch
}
