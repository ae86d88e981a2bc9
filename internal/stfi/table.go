package stfi

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quantella/bondsync/internal/catalog"
	"github.com/quantella/bondsync/internal/fetcher"
)

// ParseTable converts the delimited yield table into records. The site has
// shipped the file with ';' and with ',' separators at different times, so
// the separator is sniffed from the header line. Columns whose name starts
// with "unnamed" are dropped, numeric cells (comma decimal) become float64,
// and empty cells become explicit nils.
func ParseTable(ctx context.Context, r io.Reader) ([]catalog.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "stfi: read table")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, eris.New("stfi: empty table")
	}

	sep := sniffSeparator(data)
	records, err := parseRows(ctx, data, sep)
	if err != nil {
		return nil, err
	}

	zap.L().Info("parsed yield table",
		zap.Int("records", len(records)),
		zap.String("separator", string(sep)),
	)
	return records, nil
}

// sniffSeparator picks ';' when the header line splits into more fields with
// it than with ','.
func sniffSeparator(data []byte) rune {
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}
	if bytes.Count(header, []byte{';'}) >= bytes.Count(header, []byte{','}) {
		return ';'
	}
	return ','
}

func parseRows(ctx context.Context, data []byte, sep rune) ([]catalog.Record, error) {
	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, bytes.NewReader(data), fetcher.CSVOptions{
		Delimiter:     sep,
		HasHeader:     true,
		HeaderCh:      headerCh,
		TrimSpace:     true,
		SkipMalformed: true,
	})

	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}

	// The streaming goroutine has finished; the header, if any, is buffered.
	var header []string
	select {
	case header = <-headerCh:
	default:
		return nil, eris.New("stfi: table has no header row")
	}

	// Column indices to keep; "unnamed" columns are parser artifacts.
	type col struct {
		idx  int
		name string
	}
	var cols []col
	for i, name := range header {
		if name == "" || strings.HasPrefix(strings.ToLower(name), "unnamed") {
			continue
		}
		cols = append(cols, col{idx: i, name: name})
	}
	if len(cols) == 0 {
		return nil, eris.New("stfi: table header has no usable columns")
	}

	records := make([]catalog.Record, 0, len(rows))
	for _, row := range rows {
		rec := make(catalog.Record, len(cols))
		for _, c := range cols {
			if c.idx >= len(row) {
				rec[c.name] = nil
				continue
			}
			rec[c.name] = convertCell(row[c.idx])
		}
		records = append(records, rec)
	}

	return records, nil
}

// convertCell turns a raw cell into nil (empty), float64 (numeric, comma or
// dot decimal), or the string itself.
func convertCell(s string) any {
	if s == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64); err == nil {
		return f
	}
	return s
}
