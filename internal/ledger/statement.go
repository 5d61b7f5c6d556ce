package ledger

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/aspire-solar/billdesk/internal/money"
	"github.com/aspire-solar/billdesk/internal/settings"
	"github.com/aspire-solar/billdesk/web"
)

// HTMLRenderer converts an HTML document to PDF.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// ProfileSource supplies the company name printed on statements.
type ProfileSource interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

type statementView struct {
	CompanyName  string
	EmployeeName string
	GeneratedOn  time.Time
	Summary      *Summary
}

// StatementBuilder renders an employee's ledger as a PDF statement.
type StatementBuilder struct {
	service  *Service
	renderer HTMLRenderer
	profile  ProfileSource
	tpl      *template.Template
}

// NewStatementBuilder parses the statement template.
func NewStatementBuilder(service *Service, renderer HTMLRenderer, profile ProfileSource) (*StatementBuilder, error) {
	funcs := template.FuncMap{
		"formatDate": func(t time.Time) string { return t.Format("02 Jan 2006") },
		"formatINR":  money.FormatINR,
		"typeLabel": func(t PaymentType) string {
			return cases.Title(language.English).String(strings.ReplaceAll(strings.ToLower(string(t)), "_", " "))
		},
	}
	tpl, err := template.New("ledger_statement.html").Funcs(funcs).ParseFS(web.Templates, "templates/reports/ledger_statement.html")
	if err != nil {
		return nil, fmt.Errorf("ledger: parse statement template: %w", err)
	}
	return &StatementBuilder{service: service, renderer: renderer, profile: profile, tpl: tpl}, nil
}

// HTML renders the statement document.
func (b *StatementBuilder) HTML(ctx context.Context, employeeID string) (string, error) {
	name, err := b.service.repo.EmployeeName(ctx, employeeID)
	if err != nil {
		return "", err
	}
	summary, err := b.service.Summary(ctx, employeeID)
	if err != nil {
		return "", err
	}
	view := statementView{EmployeeName: name, GeneratedOn: b.service.today(), Summary: summary}
	if b.profile != nil {
		if s, err := b.profile.Get(ctx); err == nil {
			view.CompanyName = s.CompanyName
		}
	}
	var buf bytes.Buffer
	if err := b.tpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("ledger: execute statement template: %w", err)
	}
	return buf.String(), nil
}

// PDF renders the statement through the HTML renderer.
func (b *StatementBuilder) PDF(ctx context.Context, employeeID string) ([]byte, error) {
	html, err := b.HTML(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	return b.renderer.RenderHTML(ctx, html)
}
