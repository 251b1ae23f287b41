package record

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Column header aliases seen across CAD exports. Matching is
// case-insensitive on the trimmed header cell.
var headerAliases = map[string][]string{
	FieldDescription:    {"description", "designation", "name", "nom", "libelle"},
	FieldReference:      {"repere", "reference", "id", "hex_id", "code"},
	FieldManufacturer:   {"fabricant", "manufacturer", "marque"},
	FieldProductRef:     {"ref", "product_ref", "article"},
	FieldSpecifications: {"specifications", "details", "caracteristiques", "properties"},
}

// Normalize reads a delimited equipment schedule and returns one Record
// per non-empty data row. The delimiter is taken from the file name
// extension (.csv comma, .tsv/.txt tab) or sniffed from the first line.
// Known header aliases bind columns to canonical fields; when the header
// matches nothing, the first three columns are used positionally as
// reference, description, specifications. Columns bound to no field are
// folded into specifications as "Header: value" pairs.
func Normalize(r io.Reader, name string) ([]Record, error) {
	br := bufio.NewReader(r)

	delim, err := detectDelimiter(br, name)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(br)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	binding, positional := bindHeader(header)
	if positional {
		slog.Warn("no known column headers, using positional mapping", "file", name)
	}

	data := rows[1:]
	if positional {
		// Without a recognized header the first row is data too.
		data = rows
	}

	var records []Record
	for _, row := range data {
		rec := buildRecord(row, header, binding, positional)
		if rec == nil {
			continue
		}
		records = append(records, rec)
	}

	slog.Info("normalized input", "file", name, "records", len(records))
	return records, nil
}

func detectDelimiter(br *bufio.Reader, name string) (rune, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".csv"):
		return ',', nil
	case strings.HasSuffix(lower, ".tsv"), strings.HasSuffix(lower, ".txt"):
		return '\t', nil
	}

	line, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return 0, fmt.Errorf("sniff delimiter: %w", err)
	}
	if i := strings.IndexByte(string(line), '\n'); i >= 0 {
		line = line[:i]
	}
	if strings.Count(string(line), "\t") >= strings.Count(string(line), ",") {
		return '\t', nil
	}
	return ',', nil
}

// bindHeader maps column index to canonical field. positional is true
// when no alias matched at all.
func bindHeader(header []string) (map[int]string, bool) {
	binding := make(map[int]string)
	bound := make(map[string]bool)

	for i, cell := range header {
		key := strings.ToLower(strings.TrimSpace(cell))
		for field, aliases := range headerAliases {
			if bound[field] {
				continue
			}
			for _, alias := range aliases {
				if key == alias {
					binding[i] = field
					bound[field] = true
					break
				}
			}
			if binding[i] != "" {
				break
			}
		}
	}

	return binding, len(binding) == 0
}

func buildRecord(row, header []string, binding map[int]string, positional bool) Record {
	rec := Record{}
	var extra []string

	for i, cell := range row {
		// AutoCAD TXT dumps quote the first cell with a leading apostrophe.
		val := strings.TrimSpace(strings.TrimPrefix(cell, "'"))
		if val == "" {
			continue
		}

		switch {
		case positional:
			switch i {
			case 0:
				rec[FieldReference] = val
			case 1:
				rec[FieldDescription] = val
			default:
				extra = append(extra, val)
			}
		case binding[i] != "":
			rec[binding[i]] = val
		default:
			label := ""
			if i < len(header) {
				label = strings.TrimSpace(header[i])
			}
			if label != "" {
				extra = append(extra, label+": "+val)
			} else {
				extra = append(extra, val)
			}
		}
	}

	if len(extra) > 0 {
		if rec[FieldSpecifications] != "" {
			extra = append([]string{rec[FieldSpecifications]}, extra...)
		}
		rec[FieldSpecifications] = strings.Join(extra, " | ")
	}

	if len(rec) == 0 {
		return nil
	}
	return rec
}
