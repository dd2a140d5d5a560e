// Package payroll is a thin client for the backend's resource collections
// (employees, contracts, payroll runs and so on). It knows each collection's
// path and display columns and nothing about their business rules; every
// request goes through the authenticated dispatcher.
package payroll
