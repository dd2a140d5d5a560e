package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

// MaxCellWidth is the widest a list cell gets before it is shortened.
const MaxCellWidth = 60

// OutputFormat selects how command results are rendered.
type OutputFormat string

const (
	OutputTable OutputFormat = "table"
	OutputJSON  OutputFormat = "json"
	OutputYAML  OutputFormat = "yaml"
)

// ParseOutputFormat validates an --output value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case OutputTable, OutputJSON, OutputYAML:
		return f, nil
	case "":
		return OutputTable, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (valid: table, json, yaml)", s)
	}
}

// Printer renders command results to a writer.
type Printer struct {
	out       io.Writer
	format    OutputFormat
	noHeaders bool
}

// NewPrinter returns a printer writing format to out.
func NewPrinter(out io.Writer, format OutputFormat, noHeaders bool) *Printer {
	return &Printer{out: out, format: format, noHeaders: noHeaders}
}

// List prints a collection. data is what JSON and YAML output encode;
// headers and rows are the table view of the same data.
func (p *Printer) List(data interface{}, headers []string, rows [][]string) error {
	if p.format != OutputTable {
		return p.encode(data)
	}
	if len(rows) == 0 {
		fmt.Fprintln(p.out, text.FgYellow.Sprint("No items found"))
		return nil
	}

	t := p.newTable()
	t.SetStyle(plainStyle())
	if !p.noHeaders {
		header := make(table.Row, len(headers))
		for i, h := range headers {
			header[i] = strings.ToUpper(h)
		}
		t.AppendHeader(header)
	}
	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, cell := range r {
			row[i] = fitCell(cell, MaxCellWidth)
		}
		t.AppendRow(row)
	}
	t.Render()
	return nil
}

// Object prints a single object. data is what JSON and YAML output encode;
// pairs are the key/value table view of it, in order.
func (p *Printer) Object(data interface{}, pairs [][2]string) error {
	if p.format != OutputTable {
		return p.encode(data)
	}

	t := p.newTable()
	t.SetStyle(table.StyleRounded)
	for _, kv := range pairs {
		t.AppendRow(table.Row{text.FgHiCyan.Sprint(kv[0]), kv[1]})
	}
	t.Render()
	return nil
}

func (p *Printer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	return t
}

// encode writes data as JSON or YAML. YAML goes through JSON first so both
// formats use the json field names.
func (p *Printer) encode(data interface{}) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if p.format == OutputJSON {
		_, err = fmt.Fprintln(p.out, string(raw))
		return err
	}

	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	enc := yaml.NewEncoder(p.out)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return enc.Close()
}

// plainStyle is a borderless kubectl-like table style.
func plainStyle() table.Style {
	style := table.StyleDefault
	style.Options = table.Options{
		DrawBorder:      false,
		SeparateColumns: false,
		SeparateHeader:  false,
		SeparateRows:    false,
	}
	style.Box.PaddingLeft = ""
	style.Box.PaddingRight = "   "
	style.Format.Header = text.FormatDefault
	return style
}

// fitCell collapses whitespace to single spaces and shortens s to at most
// width runes, ending in "..." when cut.
func fitCell(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}
