package csvimport

import (
	"encoding/csv"
	"strconv"
	"strings"

	"ecotermo/internal/asset"
)

const (
	defaultText     = "-"
	defaultArea     = "Geral"
	defaultMaterial = "Inox"
)

// ParseError reports a structural problem with an import file. No record
// from a file that fails to parse is ever written.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string {
	return "parsing csv: " + e.Msg
}

// Parser turns spreadsheet text into asset records.
type Parser struct {
	Rules asset.Rules
}

// NewParser creates a Parser using the given derivation rules.
func NewParser(rules asset.Rules) *Parser {
	return &Parser{Rules: rules}
}

// Parse reads text with a header line and at least one data line. Column
// positions are sniffed from the header; rows with fewer than two cells are
// skipped and malformed cells fall back to per-field defaults.
func (p *Parser) Parse(text string) ([]asset.Record, error) {
	text = strings.TrimPrefix(text, "\ufeff")

	lines := nonBlankLines(text)
	if len(lines) < 2 {
		return nil, &ParseError{Msg: "file is empty (need a header and at least one data line)"}
	}

	sep := ','
	if strings.Contains(lines[0], ";") {
		sep = ';'
	}

	cols := ResolveColumns(splitRow(lines[0], sep))
	if cols.Index(FieldTag) < 0 {
		return nil, &ParseError{Msg: "missing identity column"}
	}

	records := make([]asset.Record, 0, len(lines)-1)
	for i, line := range lines[1:] {
		cells := splitRow(line, sep)
		if len(cells) < 2 {
			continue
		}
		records = append(records, p.buildRecord(row{cells: cells, cols: cols}, i+1))
	}
	return records, nil
}

func (p *Parser) buildRecord(r row, lineNo int) asset.Record {
	rec := asset.Record{
		Tag:                 r.text(FieldTag, defaultText),
		Number:              r.text(FieldNumber, strconv.Itoa(lineNo)),
		Serial:              r.text(FieldSerial, defaultText),
		Model:               r.text(FieldModel, defaultText),
		Area:                r.text(FieldArea, defaultArea),
		Application:         r.text(FieldApplication, defaultText),
		Material:            r.text(FieldMaterial, defaultMaterial),
		LastMaintenanceDate: r.text(FieldLastMaintenance, defaultText),
		Technician:          r.text(FieldTechnician, defaultText),
		IntegrityTestStatus: asset.NormalizeIntegrity(r.text(FieldIntegrity, "")),
	}

	rec.PlateCount, _ = ParseCount(r.text(FieldPlateCount, ""))
	rec.DaysSinceService, _ = ParseCount(r.text(FieldDays, ""))
	rec.CleanSidePressure, _ = ParseNumber(r.text(FieldCleanPressure, ""))
	rec.RawSidePressure, _ = ParseNumber(r.text(FieldRawPressure, ""))
	if cost, ok := ParseNumber(r.text(FieldCost, "")); ok && cost > 0 {
		rec.MaintenanceCost = cost
	}

	rec.Status = p.status(r, rec.DaysSinceService)

	if eff, ok := ParseNumber(r.text(FieldEfficiency, "")); ok {
		rec.EfficiencyPercent = min(max(eff, 0), 100)
	} else {
		rec.EfficiencyPercent = asset.DeriveEfficiencyDefault(rec.Status)
	}

	rec.Derive()
	return rec
}

// status resolves a row's status according to the configured source. The
// fallback when neither a days nor a status column exists is "stopped".
func (p *Parser) status(r row, days int) asset.Status {
	hasDays := r.cols.Index(FieldDays) >= 0
	text := r.text(FieldStatus, "")

	if p.Rules.StatusSource == asset.StatusFromText && text != "" {
		return asset.NormalizeStatus(text)
	}
	if hasDays {
		return p.Rules.StatusFromDays(days)
	}
	if text != "" {
		return asset.NormalizeStatus(text)
	}
	return asset.StatusStopped
}

type row struct {
	cells []string
	cols  Columns
}

// text returns the trimmed cell for f, or def when the column is absent, the
// row is short, or the cell is empty.
func (r row) text(f Field, def string) string {
	i := r.cols.Index(f)
	if i < 0 || i >= len(r.cells) || r.cells[i] == "" {
		return def
	}
	return r.cells[i]
}

func nonBlankLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// splitRow splits a single line on sep, honouring double-quoted cells.
// Lines the csv reader rejects are split naively.
func splitRow(line string, sep rune) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = sep
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	cells, err := r.Read()
	if err != nil {
		cells = strings.Split(line, string(sep))
	}
	for i := range cells {
		cells[i] = unquote(cells[i])
	}
	return cells
}
