// Package csvdata implements the CSV conventions shared by the verification
// engine and the merge pipeline: delimiter detection, cell and header
// normalization, and first-row type inference.
package csvdata

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// DataRowOffset is the number of lines consumed before the chunked data scan
// begins (the header line and the first data line). Zero-based scan indices
// plus this offset give 1-based CSV row numbers in error reports.
const DataRowOffset = 2

// delimiterCandidates is the fixed candidate set, in tie-break priority order.
var delimiterCandidates = []rune{',', ';', '\t', '|'}

// currencySymbols are the markers that promote a cell to the Currency type.
var currencySymbols = "$€£¥"

// PlaceholderType is the inferred data type of a CSV column
type PlaceholderType string

// Inferred column types, in inference precedence order
const (
	// TypeEmail matches values containing both '@' and '.'
	TypeEmail PlaceholderType = "Email"
	// TypeCurrency matches values containing a currency symbol
	TypeCurrency PlaceholderType = "Currency"
	// TypeNumber matches values parseable as a 64-bit float
	TypeNumber PlaceholderType = "Number"
	// TypeText matches anything
	TypeText PlaceholderType = "Text"
)

// Label returns the lowercase name used in validation error messages
func (t PlaceholderType) Label() string {
	return strings.ToLower(string(t))
}

// ColumnCheck is the validation rule for one column: its normalized title,
// the type inferred from the first data row, and a sample value for display.
type ColumnCheck struct {
	Title           string          `json:"title"`
	PlaceholderType PlaceholderType `json:"placeholder_type"`
	FirstRow        *string         `json:"first_row"`
}

// DetectDelimiter picks the candidate delimiter occurring most often in the
// header line. Ties resolve to the earlier candidate in priority order, and a
// header with no candidate occurrences defaults to comma.
func DetectDelimiter(headerLine string) rune {
	best := delimiterCandidates[0]
	bestCount := strings.Count(headerLine, string(best))
	for _, d := range delimiterCandidates[1:] {
		if count := strings.Count(headerLine, string(d)); count > bestCount {
			best, bestCount = d, count
		}
	}
	return best
}

// NormalizeCell trims a raw cell, strips one pair of surrounding single or
// double quotes, replaces non-breaking spaces with ordinary spaces, and trims
// again.
func NormalizeCell(cell string) string {
	s := strings.TrimSpace(cell)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = s[1 : len(s)-1]
		}
	}
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(s)
}

// ValidateAndNormalizeTitles splits the header line, normalizes every title,
// and rejects empty, numeric, or duplicate titles. Runs of internal
// whitespace collapse to a single underscore, so titles differing only in
// spacing collide. The first duplicate in left-to-right order is reported.
func ValidateAndNormalizeTitles(headerLine string, delimiter rune) ([]string, error) {
	rawTitles := strings.Split(headerLine, string(delimiter))
	if len(rawTitles) == 0 {
		return nil, fmt.Errorf("header line contains no titles")
	}

	seen := make(map[string]struct{}, len(rawTitles))
	normalized := make([]string, 0, len(rawTitles))

	for _, raw := range rawTitles {
		title := NormalizeCell(raw)
		if title == "" {
			return nil, fmt.Errorf("header contains an empty title")
		}
		if _, err := strconv.ParseFloat(title, 64); err == nil {
			return nil, fmt.Errorf("header titles must be textual, but found numeric title: '%s'", title)
		}

		norm := strings.Join(strings.Fields(title), "_")
		if _, dup := seen[norm]; dup {
			return nil, fmt.Errorf("duplicate title in header after normalization: '%s'", norm)
		}
		seen[norm] = struct{}{}
		normalized = append(normalized, norm)
	}

	return normalized, nil
}

// InferColumnChecks infers a type per column from the first data row.
// Columns beyond the end of the row are Text with no sample value.
func InferColumnChecks(titles []string, firstDataLine string, delimiter rune) []ColumnCheck {
	cells := strings.Split(firstDataLine, string(delimiter))
	for i, c := range cells {
		cells[i] = NormalizeCell(c)
	}

	columns := make([]ColumnCheck, 0, len(titles))
	for idx, title := range titles {
		check := ColumnCheck{Title: title, PlaceholderType: TypeText}
		if idx < len(cells) {
			check.PlaceholderType = inferType(cells[idx])
			sample := cells[idx]
			check.FirstRow = &sample
		}
		columns = append(columns, check)
	}
	return columns
}

func inferType(value string) PlaceholderType {
	switch {
	case strings.Contains(value, "@") && strings.Contains(value, "."):
		return TypeEmail
	case strings.ContainsAny(value, currencySymbols):
		return TypeCurrency
	default:
		if _, err := strconv.ParseFloat(value, 64); err == nil {
			return TypeNumber
		}
		return TypeText
	}
}

// ValidateValue reports whether a normalized cell conforms to the given type
func ValidateValue(t PlaceholderType, value string) bool {
	switch t {
	case TypeText:
		return true
	case TypeNumber, TypeCurrency:
		_, err := strconv.ParseFloat(value, 64)
		return err == nil
	case TypeEmail:
		return strings.Contains(value, "@") && strings.Contains(value, ".")
	default:
		return false
	}
}

// ReadHeaderAndFirstRow reads the header line and the first data line from a
// buffered CSV reader, with trailing CR/LF stripped. It fails when the file
// holds no data rows.
func ReadHeaderAndFirstRow(reader *bufio.Reader) (string, string, error) {
	headerLine, err := readTrimmedLine(reader)
	if err != nil {
		return "", "", fmt.Errorf("failed to read header line: %w", err)
	}

	firstDataLine, err := readTrimmedLine(reader)
	if err != nil {
		return "", "", fmt.Errorf("CSV file does not contain any data rows")
	}

	return headerLine, firstDataLine, nil
}

func readTrimmedLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
