package asset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize trims text fields and fills the enum defaults of a manually
// entered record.
func (r *Record) Normalize() {
	r.Tag = strings.TrimSpace(r.Tag)
	r.Serial = strings.TrimSpace(r.Serial)
	r.Number = strings.TrimSpace(r.Number)
	r.Model = strings.TrimSpace(r.Model)
	r.Area = strings.TrimSpace(r.Area)
	r.Application = strings.TrimSpace(r.Application)
	r.Material = strings.TrimSpace(r.Material)
	r.Technician = strings.TrimSpace(r.Technician)
	r.LastMaintenanceDate = strings.TrimSpace(r.LastMaintenanceDate)
	if r.IntegrityTestStatus == "" {
		r.IntegrityTestStatus = IntegrityValid
	}
	if r.FoodSafetyStatus == "" {
		r.Derive()
	}
}

// Validate checks the record against its field constraints and returns one
// error naming every offending field.
func (r *Record) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating record: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid record %q: %s", r.Tag, strings.Join(msgs, ", "))
}
