// Package output provides output formatting for synadm.
//
// Purpose:
//
//	Render the JSON values returned by the homeserver in the format the
//	user asked for: YAML (default), indented or minified JSON, a Go-syntax
//	pretty dump, human-readable tables, or CSV. Provides consistent output
//	formatting across all commands.
//
// Dependencies:
//   - gopkg.in/yaml.v3: YAML output
//   - github.com/davecgh/go-spew: pprint output
//   - github.com/olekukonko/tablewriter: human output
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Format names an output format.
type Format string

// Output formats, in the order used to resolve abbreviations.
const (
	FormatPprint   Format = "pprint"
	FormatJSON     Format = "json"
	FormatMinified Format = "minified"
	FormatYAML     Format = "yaml"
	FormatHuman    Format = "human"
	FormatCSV      Format = "csv"
)

// Formats lists every output format in resolution order.
var Formats = []Format{FormatPprint, FormatJSON, FormatMinified, FormatYAML, FormatHuman, FormatCSV}

// FormatNames returns the format names as strings, e.g. for prompts and help.
func FormatNames() []string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return names
}

// ResolveFormat maps a format name or abbreviation ("h", "pp", "j") onto a
// Format. The first format in Formats that starts with name wins.
func ResolveFormat(name string) (Format, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", fmt.Errorf("output format is empty, choose one of %s", strings.Join(FormatNames(), ", "))
	}
	for _, f := range Formats {
		if strings.HasPrefix(string(f), name) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q, choose one of %s", name, strings.Join(FormatNames(), ", "))
}

// Printer writes values in one format.
type Printer struct {
	w      io.Writer
	format Format
}

// NewPrinter creates a printer for format writing to w (stdout if nil).
func NewPrinter(w io.Writer, format Format) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{w: w, format: format}
}

// Format returns the printer's format.
func (p *Printer) Format() Format {
	return p.format
}

// Human reports whether the printer renders for humans, in which case
// commands add summary lines around the data.
func (p *Printer) Human() bool {
	return p.format == FormatHuman
}

// Print renders data followed by a newline.
func (p *Printer) Print(data any) error {
	switch p.format {
	case FormatJSON:
		return NewJSONFormatter(p.w).Write(data)
	case FormatMinified:
		return NewJSONFormatter(p.w).WriteMinified(data)
	case FormatPprint:
		return WritePprint(p.w, data)
	case FormatHuman:
		return NewTableFormatter(p.w).Write(data)
	case FormatCSV:
		return NewCSVFormatter(p.w).Write(data)
	default:
		return WriteYAML(p.w, data)
	}
}

// Println writes a plain message line, used for summaries and hints.
func (p *Printer) Println(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}
