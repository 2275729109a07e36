package output

import (
	"io"

	"github.com/davecgh/go-spew/spew"
	"gopkg.in/yaml.v3"
)

var pprintConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// WriteYAML outputs data as a YAML document.
func WriteYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}

// WritePprint outputs a Go-syntax dump of data.
func WritePprint(w io.Writer, data any) error {
	pprintConfig.Fdump(w, data)
	return nil
}
