// Package employees keeps employee records, their uploaded documents and the
// public profile page addressed by slug.
package employees

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/aspire-solar/billdesk/internal/platform/httpx"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

// MaxBulkDelete bounds the ids accepted by one bulk delete.
const MaxBulkDelete = 200

var (
	// ErrNotFound indicates the employee does not exist.
	ErrNotFound = fmt.Errorf("employees: employee %w", httpx.ErrNotFound)
	// ErrDocumentNotFound indicates the document does not exist.
	ErrDocumentNotFound = fmt.Errorf("employees: document %w", httpx.ErrNotFound)
	// ErrSlugTaken is returned by repositories when the slug already exists.
	ErrSlugTaken = fmt.Errorf("employees: slug %w", httpx.ErrDuplicate)
)

// Employee is a staff member.
type Employee struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone,omitempty"`
	Email       string     `json:"email,omitempty"`
	Address     string     `json:"address,omitempty"`
	Designation string     `json:"designation,omitempty"`
	JoinDate    *time.Time `json:"joinDate,omitempty"`
	UniqueSlug  string     `json:"uniqueSlug"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Document is a file kept against an employee.
type Document struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Title      string    `json:"title"`
	FileName   string    `json:"fileName"`
	FileURL    string    `json:"fileUrl"`
	MimeType   string    `json:"mimeType"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Details is an employee with their documents.
type Details struct {
	Employee
	Documents []Document `json:"documents"`
}

// Profile is the public view served by slug.
type Profile struct {
	Name        string     `json:"name"`
	Designation string     `json:"designation,omitempty"`
	JoinDate    *time.Time `json:"joinDate,omitempty"`
	Slug        string     `json:"slug"`
}

// Request creates or replaces an employee.
type Request struct {
	Name        string `json:"name" validate:"required,max=200"`
	Phone       string `json:"phone" validate:"max=20"`
	Email       string `json:"email" validate:"omitempty,email"`
	Address     string `json:"address" validate:"max=500"`
	Designation string `json:"designation" validate:"max=100"`
	JoinDate    string `json:"joinDate" validate:"omitempty,datetime=2006-01-02"`
}

// BulkDeleteRequest lists employees to remove.
type BulkDeleteRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=200,dive,required"`
}

// BulkDeleteResult reports what a bulk delete removed.
type BulkDeleteResult struct {
	Deleted int `json:"deleted"`
	// Files counts stored documents handed to the remover.
	Files int `json:"files"`
	// FileErrors counts documents whose removal could not be scheduled.
	FileErrors int `json:"fileErrors"`
}

// NewSlug derives a URL slug from name plus a short random suffix.
func NewSlug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	base := strings.Trim(b.String(), "-")
	if len(base) > 48 {
		base = strings.TrimRight(base[:48], "-")
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}
