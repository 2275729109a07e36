package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	writer io.Writer
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(w io.Writer) *JSONFormatter {
	return &JSONFormatter{writer: w}
}

// Write outputs data as JSON indented by four spaces.
func (j *JSONFormatter) Write(data any) error {
	encoder := json.NewEncoder(j.writer)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "    ")
	return encoder.Encode(data)
}

// WriteMinified outputs data as compact JSON on a single line.
func (j *JSONFormatter) WriteMinified(data any) error {
	encoder := json.NewEncoder(j.writer)
	encoder.SetEscapeHTML(false)
	return encoder.Encode(data)
}

// compactJSON renders v on one line for table cells.
func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
