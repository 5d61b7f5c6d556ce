// Command seed loads demo data for local development: an admin account, two
// clients, an invoice, and an employee with ledger entries.
package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/shopspring/decimal"

	"github.com/aspire-solar/billdesk/internal/app"
	"github.com/aspire-solar/billdesk/internal/clients"
	"github.com/aspire-solar/billdesk/internal/employees"
	"github.com/aspire-solar/billdesk/internal/invoice"
	"github.com/aspire-solar/billdesk/internal/ledger"
	"github.com/aspire-solar/billdesk/internal/platform/db"
	"github.com/aspire-solar/billdesk/internal/platform/httpx"
	"github.com/aspire-solar/billdesk/internal/shared"
	"github.com/aspire-solar/billdesk/internal/users"
	"github.com/aspire-solar/billdesk/migrations"
)

func main() {
	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := app.NewLogger(cfg)
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if _, err := migrations.Apply(ctx, pool, logger); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	svc, err := app.NewServices(app.ServiceDeps{Config: cfg, Logger: logger, Pool: pool})
	if err != nil {
		log.Fatalf("services: %v", err)
	}
	if _, err := svc.Settings.Ensure(ctx); err != nil {
		log.Fatalf("settings: %v", err)
	}

	log.Println("→ Seeding users...")
	admin, err := svc.Users.Create(ctx, users.CreateRequest{
		Email:    getenv("SEED_ADMIN_EMAIL", "admin@billdesk.local"),
		Password: getenv("SEED_ADMIN_PASSWORD", "billdesk-admin"),
		Role:     shared.RoleAdmin,
	})
	if errors.Is(err, httpx.ErrDuplicate) {
		log.Println("  admin exists, skipping demo data")
		return
	}
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	log.Println("→ Seeding clients...")
	acme, err := svc.Clients.Create(ctx, clients.Request{
		Name: "Sahyadri Agro Foods", AddressLine1: "Plot 14, MIDC", City: "Satara",
		State: "Maharashtra", Pin: "415004", GSTNumber: "27AAACS1234A1Z5",
	})
	if err != nil {
		log.Fatalf("seed client: %v", err)
	}
	if _, err := svc.Clients.Create(ctx, clients.Request{Name: "Krishna Textiles", City: "Karad", State: "Maharashtra"}); err != nil {
		log.Fatalf("seed client: %v", err)
	}

	log.Println("→ Seeding invoice...")
	created, err := svc.Invoices.Create(ctx, invoice.CreateRequest{
		ClientID:           acme.ID,
		InvoiceDate:        "2024-07-15",
		WorkOrderReference: "WO/SAF/2024/031",
		WorkOrderDate:      "2024-06-20",
		CompanyName:        acme.Name,
		AddressLine1:       acme.AddressLine1,
		City:               acme.City,
		State:              acme.State,
		Pin:                acme.Pin,
		GSTNumber:          acme.GSTNumber,
		CGSTPercentage:     decimal.NewFromInt(9),
		SGSTPercentage:     decimal.NewFromInt(9),
		LineItems: []invoice.LineItemRequest{
			{Description: "50 kW rooftop solar plant installation", HSNSACCode: "995442", Rate: decimal.NewFromInt(42000), Quantity: decimal.NewFromInt(50), Unit: "kW"},
			{Description: "Net metering liaison", HSNSACCode: "998399", Rate: decimal.NewFromInt(15000), Quantity: decimal.NewFromInt(1), Unit: "Job"},
		},
		CreatedBy: admin.ID,
	})
	if err != nil {
		log.Fatalf("seed invoice: %v", err)
	}
	for _, warning := range created.Warnings {
		log.Printf("  warning: %s", warning)
	}
	if _, err := svc.Clients.RecordPayment(ctx, clients.PaymentRequest{
		ClientID: acme.ID, Amount: decimal.NewFromInt(1000000), Date: "2024-08-01", Mode: "NEFT",
	}); err != nil {
		log.Fatalf("seed client payment: %v", err)
	}

	log.Println("→ Seeding employees...")
	emp, err := svc.Employees.Create(ctx, employees.Request{Name: "Ravi Patil", Designation: "Site Engineer", JoinDate: "2023-04-01"})
	if err != nil {
		log.Fatalf("seed employee: %v", err)
	}
	due, err := svc.Ledger.Record(ctx, ledger.RecordRequest{EmployeeID: emp.ID, Type: ledger.TypeDue, Amount: decimal.NewFromInt(12000), Date: "2024-07-01"})
	if err != nil {
		log.Fatalf("seed ledger: %v", err)
	}
	if _, err := svc.Ledger.Record(ctx, ledger.RecordRequest{EmployeeID: emp.ID, Type: ledger.TypeAdvance, Amount: decimal.NewFromInt(5000), Date: "2024-07-10"}); err != nil {
		log.Fatalf("seed ledger: %v", err)
	}
	if _, err := svc.Ledger.Clear(ctx, due.ID, ledger.ClearRequest{Date: "2024-07-31"}); err != nil {
		log.Fatalf("seed ledger clear: %v", err)
	}

	log.Printf("✓ Seed complete: invoice %s, employee profile /profiles/%s", created.Invoice.InvoiceNumber, emp.UniqueSlug)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
