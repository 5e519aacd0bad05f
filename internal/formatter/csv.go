package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// csvFormatter writes every distinct sample, one row per core and entry,
// in arrival order
type csvFormatter struct{}

// NewCSV creates a new CSV formatter
func NewCSV() Formatter {
	return &csvFormatter{}
}

func (f *csvFormatter) Format(report *Report) ([]byte, error) {
	var b bytes.Buffer
	writer := csv.NewWriter(&b)

	if err := writer.Write([]string{"core", "sequence", "voltage", "clock"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, core := range report.Cores {
		id := strconv.Itoa(core.Core)
		for i, e := range core.Entries {
			record := []string{
				id,
				strconv.Itoa(i),
				strconv.FormatFloat(e.Voltage, 'f', -1, 64),
				strconv.FormatFloat(e.Clock, 'f', -1, 64),
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return b.Bytes(), nil
}
