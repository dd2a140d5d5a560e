package payroll

import (
	"fmt"
	"sort"
	"strings"
)

// Resource is a backend collection.
type Resource struct {
	// Name is the CLI name.
	Name string
	// Path is the collection path relative to the API base URL, with a
	// trailing slash. Items live at Path + id.
	Path string
	// Columns are the fields shown in tables, in order.
	Columns []string
}

var resources = map[string]Resource{
	"employees":    {Name: "employees", Path: "/employees/", Columns: []string{"id", "employee_number", "first_name", "last_name", "department", "position", "status"}},
	"contracts":    {Name: "contracts", Path: "/contracts/", Columns: []string{"id", "employee_id", "contract_type", "status", "start_date"}},
	"payroll":      {Name: "payroll", Path: "/payroll/", Columns: []string{"id", "employee_id", "period_start_date", "period_end_date", "status", "gross_pay", "net_pay", "currency"}},
	"timesheets":   {Name: "timesheets", Path: "/timesheets/", Columns: []string{"id", "employee_id", "period_start", "period_end", "total_hours", "status"}},
	"absences":     {Name: "absences", Path: "/absence/absences/", Columns: []string{"id", "employee_id", "absence_type", "start_date", "end_date", "status"}},
	"audit":        {Name: "audit", Path: "/audit/", Columns: []string{"id", "entity_type", "entity_id", "action", "user_id", "created_at"}},
	"reports":      {Name: "reports", Path: "/reporting/", Columns: []string{"id", "report_type", "status", "created_at"}},
	"compensation": {Name: "compensation", Path: "/compensation/rates/", Columns: []string{"id", "employee_id", "rate_type", "amount", "currency", "effective_from"}},
}

// ResourceNames returns the known resource names, sorted.
func ResourceNames() []string {
	names := make([]string, 0, len(resources))
	for name := range resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseResource looks up a resource by name.
func ParseResource(name string) (Resource, error) {
	r, ok := resources[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Resource{}, fmt.Errorf("unknown resource %q (valid: %s)", name, strings.Join(ResourceNames(), ", "))
	}
	return r, nil
}
