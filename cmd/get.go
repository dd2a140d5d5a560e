package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"payrollctl/internal/payroll"
)

func newGetCmd() *cobra.Command {
	var totals bool

	cmd := &cobra.Command{
		Use:   "get <resource> [id]",
		Short: "Read payroll resources",
		Long: fmt.Sprintf(`List a resource collection, or show one item by id.

Resources: %s

Examples:
  payrollctl get employees
  payrollctl get payroll p-2026-02-100 -o yaml
  payrollctl get payroll --totals`, strings.Join(payroll.ResourceNames(), ", ")),
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: payroll.ResourceNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := payroll.ParseResource(args[0])
			if err != nil {
				return err
			}
			if totals && (res.Name != "payroll" || len(args) > 1) {
				return fmt.Errorf("--totals only applies to listing payroll")
			}
			printer, err := newPrinter(cmd)
			if err != nil {
				return err
			}

			application, err := openApplication(cmd)
			if err != nil {
				return err
			}
			defer application.Close()

			ctx := cmd.Context()
			client := application.Payroll()
			backend := backendOf(application)

			switch {
			case totals:
				views, err := client.ListPayroll(ctx)
				if err != nil {
					return explainError(err, backend)
				}
				sums := payroll.SumByCurrency(views)
				rows := make([][]string, 0, len(sums))
				for _, s := range sums {
					rows = append(rows, []string{s.Currency, fmt.Sprint(s.Runs), s.Gross.StringFixed(2), s.Net.StringFixed(2), s.Gross.Sub(s.Net).StringFixed(2)})
				}
				return printer.List(sums, []string{"currency", "runs", "gross", "net", "deductions"}, rows)

			case len(args) == 2:
				rec, err := client.Get(ctx, res, args[1])
				if err != nil {
					return explainError(err, backend)
				}
				return printer.Object(rec, recordRows(res, rec))

			default:
				records, err := client.List(ctx, res)
				if err != nil {
					return explainError(err, backend)
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					row := make([]string, len(res.Columns))
					for i, col := range res.Columns {
						row[i] = rec.Field(col)
					}
					rows = append(rows, row)
				}
				return printer.List(records, res.Columns, rows)
			}
		},
	}

	cmd.Flags().BoolVar(&totals, "totals", false, "Sum gross and net pay per currency (payroll only)")
	return cmd
}

// recordRows lists the resource's columns first, then every other field in
// alphabetical order.
func recordRows(res payroll.Resource, rec payroll.Record) [][2]string {
	seen := make(map[string]bool, len(res.Columns))
	rows := make([][2]string, 0, len(rec))
	for _, col := range res.Columns {
		seen[col] = true
		if _, ok := rec[col]; ok {
			rows = append(rows, [2]string{col, rec.Field(col)})
		}
	}

	var rest []string
	for key := range rec {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	for _, key := range rest {
		rows = append(rows, [2]string{key, rec.Field(key)})
	}
	return rows
}
