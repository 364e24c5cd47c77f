package asset

import "time"

// Status is the operational state of a heat exchanger.
type Status string

const (
	StatusOperational Status = "operational"
	StatusWarning     Status = "warning"
	StatusAlert       Status = "alert"
	StatusStopped     Status = "stopped"
)

// IntegrityStatus is the outcome of the last plate integrity test.
type IntegrityStatus string

const (
	IntegrityValid   IntegrityStatus = "valid"
	IntegrityExpired IntegrityStatus = "expired"
)

// FoodSafetyStatus flags cross-contamination risk in food-grade equipment.
type FoodSafetyStatus string

const (
	FoodSafetyCompliant    FoodSafetyStatus = "compliant"
	FoodSafetyWarning      FoodSafetyStatus = "warning"
	FoodSafetyCriticalRisk FoodSafetyStatus = "critical_risk"
)

// Record is one physical heat exchanger in the asset register.
// ID is the opaque storage identity; Tag is the human-assigned natural key.
type Record struct {
	ID string `json:"id,omitempty"`

	Tag    string `json:"tag" validate:"required"`
	Serial string `json:"serial"`
	Number string `json:"number"`

	Model       string `json:"model"`
	Area        string `json:"area"`
	Application string `json:"application"`
	Material    string `json:"material"`
	PlateCount  int    `json:"plateCount" validate:"gte=0"`

	DaysSinceService    int     `json:"daysSinceService" validate:"gte=0"`
	Status              Status  `json:"status" validate:"oneof=operational warning alert stopped"`
	EfficiencyPercent   float64 `json:"efficiencyPercent" validate:"gte=0,lte=100"`
	LastMaintenanceDate string  `json:"lastMaintenanceDate"`
	Technician          string  `json:"technician"`
	MaintenanceCost     float64 `json:"maintenanceCost" validate:"gte=0"`

	CleanSidePressure   float64          `json:"cleanSidePressure"`
	RawSidePressure     float64          `json:"rawSidePressure"`
	IntegrityTestStatus IntegrityStatus  `json:"integrityTestStatus" validate:"oneof=valid expired"`
	FoodSafetyStatus    FoodSafetyStatus `json:"foodSafetyStatus" validate:"oneof=compliant warning critical_risk"`

	CreatedAt  *time.Time `json:"createdAt,omitempty"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
	ImportedAt *time.Time `json:"importedAt,omitempty"`
}

// SameContent reports whether two records hold the same data, ignoring the
// storage ID.
func (r Record) SameContent(o Record) bool {
	r.ID, o.ID = "", ""
	if !timesEqual(r.CreatedAt, o.CreatedAt) || !timesEqual(r.UpdatedAt, o.UpdatedAt) || !timesEqual(r.ImportedAt, o.ImportedAt) {
		return false
	}
	r.CreatedAt, r.UpdatedAt, r.ImportedAt = nil, nil, nil
	o.CreatedAt, o.UpdatedAt, o.ImportedAt = nil, nil, nil
	return r == o
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// Derive recomputes the food-safety flag from the record's own fields.
func (r *Record) Derive() {
	r.FoodSafetyStatus = DeriveFoodSafetyStatus(r.Application, r.CleanSidePressure, r.RawSidePressure, r.IntegrityTestStatus)
}

// NumericField names a numeric attribute that can be compared across snapshots.
type NumericField string

const (
	FieldDaysSinceService  NumericField = "daysSinceService"
	FieldEfficiencyPercent NumericField = "efficiencyPercent"
	FieldPlateCount        NumericField = "plateCount"
	FieldMaintenanceCost   NumericField = "maintenanceCost"
	FieldCleanSidePressure NumericField = "cleanSidePressure"
	FieldRawSidePressure   NumericField = "rawSidePressure"
)

// NumericFields lists every comparable field in display order.
var NumericFields = []NumericField{
	FieldDaysSinceService,
	FieldEfficiencyPercent,
	FieldPlateCount,
	FieldMaintenanceCost,
	FieldCleanSidePressure,
	FieldRawSidePressure,
}

// Value returns the value of a numeric field. ok is false for unknown fields.
func (r Record) Value(f NumericField) (v float64, ok bool) {
	switch f {
	case FieldDaysSinceService:
		return float64(r.DaysSinceService), true
	case FieldEfficiencyPercent:
		return r.EfficiencyPercent, true
	case FieldPlateCount:
		return float64(r.PlateCount), true
	case FieldMaintenanceCost:
		return r.MaintenanceCost, true
	case FieldCleanSidePressure:
		return r.CleanSidePressure, true
	case FieldRawSidePressure:
		return r.RawSidePressure, true
	default:
		return 0, false
	}
}

// ParseNumericField maps a field name (or a short alias) to a NumericField.
func ParseNumericField(name string) (NumericField, bool) {
	switch Fold(name) {
	case "dayssinceservice", "days", "dias":
		return FieldDaysSinceService, true
	case "efficiencypercent", "efficiency", "eficiencia":
		return FieldEfficiencyPercent, true
	case "platecount", "plates", "placas":
		return FieldPlateCount, true
	case "maintenancecost", "cost", "custo":
		return FieldMaintenanceCost, true
	case "cleansidepressure", "clean":
		return FieldCleanSidePressure, true
	case "rawsidepressure", "raw":
		return FieldRawSidePressure, true
	default:
		return "", false
	}
}
