package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aspire-solar/billdesk/internal/fiscal"
	"github.com/aspire-solar/billdesk/internal/shared"
	"github.com/aspire-solar/billdesk/internal/users"
	"github.com/aspire-solar/billdesk/migrations"
)

func newMigrateCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := e.database(cmd.Context())
			if err != nil {
				return err
			}
			applied, err := migrations.Apply(cmd.Context(), pool, e.logger)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", strings.Join(applied, ", "))
			return nil
		},
	}
}

func newSettingsCommand(e *env) *cobra.Command {
	settingsCmd := &cobra.Command{Use: "settings", Short: "Company profile"}
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "ensure",
		Short: "Create the company profile with defaults when missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			s, err := svc.Settings.Ensure(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), s)
		},
	})
	return settingsCmd
}

func newInvoiceCommand(e *env) *cobra.Command {
	invoiceCmd := &cobra.Command{Use: "invoice", Short: "Invoice numbering and documents"}

	var on string
	next := &cobra.Command{
		Use:   "next",
		Short: "Preview the next invoice number",
		RunE: func(cmd *cobra.Command, args []string) error {
			fy := ""
			if on != "" {
				date, err := time.Parse(time.DateOnly, on)
				if err != nil {
					return fmt.Errorf("--date: %w", err)
				}
				fy = fiscal.CurrentFinancialYear(date)
			}
			svc, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			number, err := svc.Invoices.NextNumber(cmd.Context(), fy)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), number)
			return nil
		},
	}
	next.Flags().StringVar(&on, "date", "", "invoice date (YYYY-MM-DD) selecting the financial year")

	var output string
	render := &cobra.Command{
		Use:   "render <invoice-id>",
		Short: "Write an invoice PDF to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			inv, data, err := svc.Invoices.Document(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = strings.ReplaceAll(inv.InvoiceNumber, "/", "-") + ".pdf"
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s written to %s (%d bytes)\n", inv.InvoiceNumber, output, len(data))
			return nil
		},
	}
	render.Flags().StringVarP(&output, "output", "o", "", "output file (default <number>.pdf)")

	invoiceCmd.AddCommand(next, render)
	return invoiceCmd
}

func newUserCommand(e *env) *cobra.Command {
	userCmd := &cobra.Command{Use: "user", Short: "Manage sign-in accounts"}

	var email, role string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account; the password is read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			svc, err := e.services(cmd.Context())
			if err != nil {
				return err
			}
			u, err := svc.Users.Create(cmd.Context(), users.CreateRequest{
				Email:    email,
				Password: password,
				Role:     shared.Role(role),
			})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), u)
		},
	}
	create.Flags().StringVar(&email, "email", "", "login email")
	create.Flags().StringVar(&role, "role", string(shared.RoleAdmin), "ADMIN, ACCOUNTANT or EMPLOYEE")
	_ = create.MarkFlagRequired("email")

	userCmd.AddCommand(create)
	return userCmd
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("password required on stdin")
	}
	return password, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
