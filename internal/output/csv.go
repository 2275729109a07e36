package output

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVFormatter formats output as CSV with a header row.
type CSVFormatter struct {
	writer *csv.Writer
}

// NewCSVFormatter creates a new CSV formatter writing to w.
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: csv.NewWriter(w)}
}

// WriteHeader writes CSV column headers.
func (c *CSVFormatter) WriteHeader(headers []string) error {
	return c.writer.Write(headers)
}

// WriteRow writes a CSV data row.
func (c *CSVFormatter) WriteRow(row []string) error {
	return c.writer.Write(row)
}

// Write renders data: lists of objects as a header row plus one row per
// object, objects as key/value rows, lists of scalars as one column.
func (c *CSVFormatter) Write(data any) error {
	switch value := data.(type) {
	case []any:
		if len(value) == 0 {
			break
		}
		if first, ok := value[0].(map[string]any); ok {
			headers := sortedKeys(first)
			if err := c.WriteHeader(headers); err != nil {
				return err
			}
			for _, item := range value {
				obj, _ := item.(map[string]any)
				row := make([]string, len(headers))
				for i, h := range headers {
					row[i] = Cell(obj[h])
				}
				if err := c.WriteRow(row); err != nil {
					return err
				}
			}
			break
		}
		for _, item := range value {
			if err := c.WriteRow([]string{Cell(item)}); err != nil {
				return err
			}
		}
	case map[string]any:
		if err := c.WriteHeader([]string{"key", "value"}); err != nil {
			return err
		}
		for _, k := range sortedKeys(value) {
			if err := c.WriteRow([]string{k, Cell(value[k])}); err != nil {
				return err
			}
		}
	default:
		if err := c.WriteRow([]string{Cell(value)}); err != nil {
			return err
		}
	}
	return c.Flush()
}

// Flush flushes the CSV writer.
func (c *CSVFormatter) Flush() error {
	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}
