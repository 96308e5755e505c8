package stats

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/DeweyHur/online-trpg/internal/command"
	"github.com/DeweyHur/online-trpg/internal/domain"
)

// Row is one character,stat,value line of a stats block.
type Row struct {
	Character string
	Stat      string
	Value     string
}

// ParseCSV reads a GeminiStats block. The first line is a header and is
// skipped; its delimiter (',' or '|') is used for the whole block. Rows with
// fewer than three fields or an empty field are dropped.
func ParseCSV(raw string) ([]Row, error) {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	if len(lines) < 2 {
		return nil, &domain.ParseError{Command: command.NameGeminiStats, Reason: "expected a header and at least one row"}
	}

	r := csv.NewReader(strings.NewReader(strings.Join(lines[1:], "\n")))
	r.Comma = sniffDelimiter(lines[0])
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows []Row
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// skip the bad line and keep reading
			continue
		}
		if len(rec) < 3 {
			continue
		}
		row := Row{
			Character: strings.TrimSpace(rec[0]),
			Stat:      strings.TrimSpace(rec[1]),
			Value:     strings.TrimSpace(rec[2]),
		}
		if row.Character == "" || row.Stat == "" || row.Value == "" {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, &domain.ParseError{Command: command.NameGeminiStats, Reason: "no valid rows"}
	}
	return rows, nil
}

func sniffDelimiter(header string) rune {
	if strings.Contains(header, "|") {
		return '|'
	}
	return ','
}
