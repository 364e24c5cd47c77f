package csvimport

import (
	"strings"

	"ecotermo/internal/asset"
)

// Field is a logical column of the asset spreadsheet.
type Field string

const (
	FieldTag             Field = "tag"
	FieldNumber          Field = "number"
	FieldModel           Field = "model"
	FieldSerial          Field = "serial"
	FieldPlateCount      Field = "plateCount"
	FieldArea            Field = "area"
	FieldMaterial        Field = "material"
	FieldLastMaintenance Field = "lastMaintenanceDate"
	FieldTechnician      Field = "technician"
	FieldStatus          Field = "status"
	FieldEfficiency      Field = "efficiency"
	FieldCost            Field = "cost"
	FieldApplication     Field = "application"
	FieldDays            Field = "daysSinceService"
	FieldCleanPressure   Field = "cleanSidePressure"
	FieldRawPressure     Field = "rawSidePressure"
	FieldIntegrity       Field = "integrityTestStatus"
)

// Column pairs a logical field with the header keywords that select it.
type Column struct {
	Field    Field
	Keywords []string
}

// Vocabulary is matched by substring containment against folded header
// cells. Matching is deliberately loose and overlaps are possible: the
// header "Número de Série" satisfies both FieldNumber and FieldSerial.
var Vocabulary = []Column{
	{FieldTag, []string{"tag", "etiqueta"}},
	{FieldNumber, []string{"numero", "nº", "n°"}},
	{FieldModel, []string{"modelo", "model"}},
	{FieldSerial, []string{"serie", "serial", "sn"}},
	{FieldPlateCount, []string{"placa", "qtd"}},
	{FieldArea, []string{"area", "setor"}},
	{FieldMaterial, []string{"material"}},
	{FieldLastMaintenance, []string{"manut", "data", "ultima"}},
	{FieldTechnician, []string{"executante", "tecnico", "responsavel"}},
	{FieldStatus, []string{"status", "situacao"}},
	{FieldEfficiency, []string{"eficiencia", "rendimento"}},
	{FieldCost, []string{"custo", "valor"}},
	{FieldApplication, []string{"aplicacao", "app"}},
	{FieldDays, []string{"dias", "days"}},
	{FieldCleanPressure, []string{"limpo", "clean"}},
	{FieldRawPressure, []string{"cru", "raw", "bruto"}},
	{FieldIntegrity, []string{"integridade", "integrity"}},
}

// Columns maps each logical field to its header index, or -1 when absent.
type Columns map[Field]int

// Index returns the column index of f, or -1.
func (c Columns) Index(f Field) int {
	if i, ok := c[f]; ok {
		return i
	}
	return -1
}

// ResolveColumns maps every Vocabulary field to the first header containing
// one of its keywords.
func ResolveColumns(headers []string) Columns {
	folded := make([]string, len(headers))
	for i, h := range headers {
		folded[i] = asset.Fold(unquote(h))
	}

	cols := make(Columns, len(Vocabulary))
	for _, col := range Vocabulary {
		cols[col.Field] = -1
		for i, h := range folded {
			if containsAny(h, col.Keywords) {
				cols[col.Field] = i
				break
			}
		}
	}
	return cols
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func unquote(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), `"'`))
}
