package payroll

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// PayrollView is one payroll run of one employee for one period.
type PayrollView struct {
	ID          string          `json:"id"`
	EmployeeID  string          `json:"employee_id"`
	PeriodType  string          `json:"period_type"`
	PeriodStart string          `json:"period_start_date"`
	PeriodEnd   string          `json:"period_end_date"`
	Status      string          `json:"status"`
	GrossPay    decimal.Decimal `json:"gross_pay"`
	NetPay      decimal.Decimal `json:"net_pay"`
	Currency    string          `json:"currency"`
}

// Deductions is gross minus net pay.
func (v PayrollView) Deductions() decimal.Decimal {
	return v.GrossPay.Sub(v.NetPay)
}

// Totals sums payroll runs in one currency.
type Totals struct {
	Currency string
	Runs     int
	Gross    decimal.Decimal
	Net      decimal.Decimal
}

// ListPayroll returns the first page of payroll runs with exact amounts.
func (c *Client) ListPayroll(ctx context.Context) ([]PayrollView, error) {
	res, err := ParseResource("payroll")
	if err != nil {
		return nil, err
	}
	body, err := c.get(ctx, res.Path)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Items []PayrollView `json:"items"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse payroll runs: %w", err)
	}
	return envelope.Items, nil
}

// SumByCurrency totals views per currency, sorted by currency code.
func SumByCurrency(views []PayrollView) []Totals {
	byCurrency := make(map[string]*Totals)
	for _, v := range views {
		t, ok := byCurrency[v.Currency]
		if !ok {
			t = &Totals{Currency: v.Currency}
			byCurrency[v.Currency] = t
		}
		t.Runs++
		t.Gross = t.Gross.Add(v.GrossPay)
		t.Net = t.Net.Add(v.NetPay)
	}

	out := make([]Totals, 0, len(byCurrency))
	for _, t := range byCurrency {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out
}
