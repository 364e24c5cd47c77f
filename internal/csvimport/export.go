package csvimport

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"ecotermo/internal/asset"
)

// ExportHeader is the fixed column order of exported files. Every name maps
// back onto its own field when the file is imported again.
var ExportHeader = []string{
	"Tag", "Numero", "Modelo", "Serie", "Qtd Placas", "Area", "Aplicacao", "Material",
	"Dias", "Status", "Eficiencia", "Ultima Manutencao", "Executante", "Custo",
	"Pressao Lado Limpo", "Pressao Lado Cru", "Teste Integridade", "Seguranca Alimentar",
}

const bom = "\ufeff"

var cellNoise = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", ";", ",")

// ExportRow renders a record in ExportHeader order.
func ExportRow(r asset.Record) []string {
	return []string{
		r.Tag,
		r.Number,
		r.Model,
		r.Serial,
		strconv.Itoa(r.PlateCount),
		r.Area,
		r.Application,
		r.Material,
		strconv.Itoa(r.DaysSinceService),
		string(r.Status),
		FormatNumber(r.EfficiencyPercent),
		r.LastMaintenanceDate,
		r.Technician,
		FormatNumber(r.MaintenanceCost),
		FormatNumber(r.CleanSidePressure),
		FormatNumber(r.RawSidePressure),
		string(r.IntegrityTestStatus),
		string(r.FoodSafetyStatus),
	}
}

// ExportCSV writes records as a semicolon-delimited, BOM-prefixed CSV file.
func ExportCSV(w io.Writer, records []asset.Record) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(bom + strings.Join(ExportHeader, ";") + "\n"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range records {
		cells := ExportRow(r)
		for i, c := range cells {
			cells[i] = cellNoise.Replace(c)
		}
		if _, err := bw.WriteString(strings.Join(cells, ";") + "\n"); err != nil {
			return fmt.Errorf("writing record %q: %w", r.Tag, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing export: %w", err)
	}
	return nil
}
