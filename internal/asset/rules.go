package asset

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StatusSource selects which column decides a record's status when both a
// day-count and a status text column are present.
type StatusSource string

const (
	StatusFromDays StatusSource = "days"
	StatusFromText StatusSource = "text"
)

// Rules holds the configurable thresholds used to derive status.
type Rules struct {
	// WarningAfterDays: days strictly greater than this are at least a warning.
	WarningAfterDays int
	// AlertAfterDays: days strictly greater than this are an alert.
	AlertAfterDays int
	StatusSource   StatusSource
}

// DefaultRules returns the 6/8 threshold pair with day-count precedence.
func DefaultRules() Rules {
	return Rules{WarningAfterDays: 6, AlertAfterDays: 8, StatusSource: StatusFromDays}
}

// StatusFromDays derives status from days since the last service.
func (r Rules) StatusFromDays(days int) Status {
	switch {
	case days > r.AlertAfterDays:
		return StatusAlert
	case days > r.WarningAfterDays:
		return StatusWarning
	default:
		return StatusOperational
	}
}

// DeriveStatusFromDays applies the default 6/8 thresholds.
func DeriveStatusFromDays(days int) Status {
	return DefaultRules().StatusFromDays(days)
}

// statusKeywords is checked in order; the first category with a matching
// keyword wins, so "ok - critico" is operational.
var statusKeywords = []struct {
	status   Status
	keywords []string
}{
	{StatusOperational, []string{"oper", "online", "ok", "bom"}},
	{StatusAlert, []string{"alert", "crit", "ruim"}},
	{StatusWarning, []string{"atenc", "warn"}},
}

// NormalizeStatus maps free status text onto a Status. Unknown or empty text
// is StatusStopped.
func NormalizeStatus(raw string) Status {
	s := Fold(raw)
	if s == "" {
		return StatusStopped
	}
	for _, group := range statusKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(s, kw) {
				return group.status
			}
		}
	}
	return StatusStopped
}

// DeriveEfficiencyDefault is the efficiency assumed when none was recorded.
func DeriveEfficiencyDefault(s Status) float64 {
	switch s {
	case StatusOperational:
		return 95
	case StatusWarning:
		return 80
	default:
		return 60
	}
}

// DeriveFoodSafetyStatus flags pasteurizers whose raw side runs at or above
// the clean side pressure. The raw (unpasteurized) side must stay strictly
// below the clean side or product can be contaminated through a leaking plate.
func DeriveFoodSafetyStatus(application string, cleanPressure, rawPressure float64, integrity IntegrityStatus) FoodSafetyStatus {
	if strings.Contains(Fold(application), "pasteur") && rawPressure >= cleanPressure {
		return FoodSafetyCriticalRisk
	}
	if integrity == IntegrityExpired {
		return FoodSafetyWarning
	}
	return FoodSafetyCompliant
}

// NormalizeIntegrity maps integrity test text onto an IntegrityStatus.
func NormalizeIntegrity(raw string) IntegrityStatus {
	s := Fold(raw)
	for _, kw := range []string{"venc", "expir", "inval"} {
		if strings.Contains(s, kw) {
			return IntegrityExpired
		}
	}
	return IntegrityValid
}

// Fold lower-cases, trims and strips diacritics so "Situação" compares equal
// to "situacao".
func Fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
