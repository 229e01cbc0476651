package export

import "fmt"

// Column describes one exported field. Width is a relative weight used by the PDF layout.
type Column struct {
	Key    string
	Header string
	Width  float64
}

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Columns []Column
	Rows    []map[string]string
}

func (d Dataset) validate(format string) error {
	if len(d.Columns) == 0 {
		return fmt.Errorf("%s requires at least one column", format)
	}
	return nil
}

func (d Dataset) headers() []string {
	headers := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		headers[i] = c.Header
		if headers[i] == "" {
			headers[i] = c.Key
		}
	}
	return headers
}
