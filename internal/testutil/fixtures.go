package testutil

import (
	"fmt"
	"strings"
)

// CSVHeader is a semicolon header with the usual Portuguese column names.
const CSVHeader = "TAG;Modelo;Área;Dias;Status;Eficiência"

// CSVRow describes one data line for BuildCSV.
type CSVRow struct {
	Tag        string
	Model      string
	Area       string
	Days       int
	Status     string
	Efficiency string
}

// BuildCSV renders rows under CSVHeader.
func BuildCSV(rows ...CSVRow) string {
	var b strings.Builder
	b.WriteString(CSVHeader)
	b.WriteString("\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s;%s;%s;%d;%s;%s\n", r.Tag, r.Model, r.Area, r.Days, r.Status, r.Efficiency)
	}
	return b.String()
}

// SequentialCSV builds n rows tagged TC-001, TC-002, ... with days = i.
func SequentialCSV(n int) string {
	rows := make([]CSVRow, n)
	for i := range rows {
		rows[i] = CSVRow{
			Tag:        fmt.Sprintf("TC-%03d", i+1),
			Model:      "M10",
			Area:       "Pasteurização",
			Days:       i,
			Status:     "Operando",
			Efficiency: "90",
		}
	}
	return BuildCSV(rows...)
}
