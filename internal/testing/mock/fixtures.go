package mock

import "strings"

type item = map[string]interface{}

func paginated(items ...item) map[string]interface{} {
	return map[string]interface{}{
		"items": items,
		"metadata": map[string]interface{}{
			"total_items":  len(items),
			"total_pages":  1,
			"current_page": 1,
			"page_size":    50,
			"has_next":     false,
			"has_previous": false,
		},
	}
}

var employeeItems = []item{
	{"id": "e-100", "employee_number": "EMP-100", "first_name": "Jane", "last_name": "Doe", "email": DefaultEmail, "department": "People", "position": "HR Manager", "status": "active"},
	{"id": "e-101", "employee_number": "EMP-101", "first_name": "Ravi", "last_name": "Shah", "email": "ravi@example.com", "department": "Finance", "position": "Accountant", "status": "active"},
}

var payrollItems = []item{
	{"id": "p-2026-02-100", "employee_id": "e-100", "period_type": "monthly", "period_start_date": "2026-02-01", "period_end_date": "2026-02-28", "status": "approved", "gross_pay": "5234.50", "net_pay": "3890.12", "currency": "EUR", "created_at": "2026-03-01T08:00:00Z"},
	{"id": "p-2026-02-101", "employee_id": "e-101", "period_type": "monthly", "period_start_date": "2026-02-01", "period_end_date": "2026-02-28", "status": "draft", "gross_pay": "4100.00", "net_pay": "3012.75", "currency": "EUR", "created_at": nil},
}

var contractItems = []item{
	{"id": "c-1", "employee_id": "e-100", "contract_type": "permanent", "status": "active", "start_date": "2022-04-01"},
}

var timesheetItems = []item{
	{"id": "t-1", "employee_id": "e-101", "period_start": "2026-02-02", "period_end": "2026-02-08", "total_hours": 38.5, "status": "submitted"},
}

var absenceItems = []item{
	{"id": "a-1", "employee_id": "e-101", "absence_type": "vacation", "start_date": "2026-04-06", "end_date": "2026-04-10", "status": "pending"},
}

var auditItems = []item{
	{"id": "l-1", "entity_type": "employee", "entity_id": "e-101", "action": "update", "user_id": "u-1", "created_at": "2026-02-10T12:00:00Z"},
}

var reportItems = []item{
	{"id": "r-1", "report_type": "payroll_summary", "status": "completed", "created_at": "2026-03-02T07:30:00Z"},
}

var rateItems = []item{
	{"id": "cr-1", "employee_id": "e-100", "rate_type": "salary", "amount": "62814.00", "currency": "EUR", "effective_from": "2025-01-01"},
}

// collections maps list paths (relative to APIPrefix) to their response bodies.
var collections = map[string]interface{}{
	"/employees/":          paginated(employeeItems...),
	"/contracts/":          paginated(contractItems...),
	"/payroll/":            paginated(payrollItems...),
	"/timesheets/":         timesheetItems,
	"/absence/absences/":   paginated(absenceItems...),
	"/audit/":              paginated(auditItems...),
	"/reporting/":          map[string]interface{}{"items": reportItems, "total": len(reportItems)},
	"/compensation/rates/": paginated(rateItems...),
}

var collectionItems = map[string][]item{
	"/employees/":          employeeItems,
	"/contracts/":          contractItems,
	"/payroll/":            payrollItems,
	"/timesheets/":         timesheetItems,
	"/absence/absences/":   absenceItems,
	"/audit/":              auditItems,
	"/reporting/":          reportItems,
	"/compensation/rates/": rateItems,
}

func lookupItem(path string) (item, bool) {
	for prefix, items := range collectionItems {
		id, ok := strings.CutPrefix(path, prefix)
		if !ok || id == "" || strings.Contains(id, "/") {
			continue
		}
		for _, it := range items {
			if it["id"] == id {
				return it, true
			}
		}
	}
	return nil, false
}
