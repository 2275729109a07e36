package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// TableFormatter formats output as a human-readable table.
//
// Lists of objects become a table whose headers are the keys of the first
// object. Lists of scalars are printed one per line. Objects become a
// two-column key/value table. Anything else is printed as-is.
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// Write renders data.
func (t *TableFormatter) Write(data any) error {
	switch value := data.(type) {
	case []any:
		if len(value) == 0 {
			return nil
		}
		if first, ok := value[0].(map[string]any); ok {
			headers := sortedKeys(first)
			rows := make([][]string, 0, len(value))
			for _, item := range value {
				obj, _ := item.(map[string]any)
				row := make([]string, len(headers))
				for i, h := range headers {
					row[i] = Cell(obj[h])
				}
				rows = append(rows, row)
			}
			t.render(headers, rows)
			return nil
		}
		lines := make([]string, len(value))
		for i, item := range value {
			lines[i] = Cell(item)
		}
		_, err := fmt.Fprintln(t.writer, strings.Join(lines, "\n"))
		return err
	case map[string]any:
		keys := sortedKeys(value)
		rows := make([][]string, len(keys))
		for i, k := range keys {
			rows[i] = []string{k, Cell(value[k])}
		}
		t.render(nil, rows)
		return nil
	default:
		_, err := fmt.Fprintln(t.writer, Cell(value))
		return err
	}
}

func (t *TableFormatter) render(headers []string, rows [][]string) {
	table := tablewriter.NewWriter(t.writer)
	if headers != nil {
		table.SetHeader(headers)
		table.SetHeaderLine(true)
	} else {
		table.SetHeaderLine(false)
	}
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("-")
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
}

// Cell renders a single JSON value for a table cell or list line. Nested
// objects and arrays are shown as compact JSON, null as an empty string.
func Cell(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case map[string]any, []any:
		return compactJSON(value)
	default:
		return fmt.Sprint(value)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
