package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatusFromDays(t *testing.T) {
	tests := []struct {
		days int
		want Status
	}{
		{0, StatusOperational},
		{3, StatusOperational},
		{6, StatusOperational},
		{7, StatusWarning},
		{8, StatusWarning},
		{9, StatusAlert},
		{30, StatusAlert},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveStatusFromDays(tt.days), "days=%d", tt.days)
	}
}

func TestRules_StatusFromDays_NineDayVariant(t *testing.T) {
	r := Rules{WarningAfterDays: 6, AlertAfterDays: 9}

	assert.Equal(t, StatusWarning, r.StatusFromDays(9))
	assert.Equal(t, StatusAlert, r.StatusFromDays(10))
	assert.Equal(t, StatusOperational, r.StatusFromDays(6))
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want Status
	}{
		{"Operacional", StatusOperational},
		{"ONLINE", StatusOperational},
		{"ok", StatusOperational},
		{"Bom", StatusOperational},
		{"Alerta", StatusAlert},
		{"Crítico", StatusAlert},
		{"ruim", StatusAlert},
		{"Atenção", StatusWarning},
		{"warning", StatusWarning},
		{"parado", StatusStopped},
		{"", StatusStopped},
		{"   ", StatusStopped},
		// first matching category wins
		{"ok - critico", StatusOperational},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStatus(tt.raw))
		})
	}
}

func TestDeriveEfficiencyDefault(t *testing.T) {
	assert.Equal(t, 95.0, DeriveEfficiencyDefault(StatusOperational))
	assert.Equal(t, 80.0, DeriveEfficiencyDefault(StatusWarning))
	assert.Equal(t, 60.0, DeriveEfficiencyDefault(StatusAlert))
	assert.Equal(t, 60.0, DeriveEfficiencyDefault(StatusStopped))
}

func TestDeriveFoodSafetyStatus(t *testing.T) {
	tests := []struct {
		name        string
		application string
		clean, raw  float64
		integrity   IntegrityStatus
		want        FoodSafetyStatus
	}{
		{"pasteurizer inverted pressure", "Pasteurizador de leite", 3.0, 3.5, IntegrityValid, FoodSafetyCriticalRisk},
		{"pasteurizer equal pressure", "PASTEURIZADOR", 3.0, 3.0, IntegrityValid, FoodSafetyCriticalRisk},
		{"pasteurizer healthy", "pasteurizer", 4.0, 3.0, IntegrityValid, FoodSafetyCompliant},
		{"pasteurizer healthy expired test", "pasteurizer", 4.0, 3.0, IntegrityExpired, FoodSafetyWarning},
		{"inversion outside pasteurizer", "Resfriador de mosto", 1.0, 5.0, IntegrityValid, FoodSafetyCompliant},
		{"expired integrity", "Resfriador de mosto", 1.0, 5.0, IntegrityExpired, FoodSafetyWarning},
		{"risk beats expired", "pasteurização", 2.0, 2.5, IntegrityExpired, FoodSafetyCriticalRisk},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveFoodSafetyStatus(tt.application, tt.clean, tt.raw, tt.integrity))
		})
	}
}

func TestNormalizeIntegrity(t *testing.T) {
	assert.Equal(t, IntegrityExpired, NormalizeIntegrity("Vencido"))
	assert.Equal(t, IntegrityExpired, NormalizeIntegrity("expired"))
	assert.Equal(t, IntegrityExpired, NormalizeIntegrity("inválido"))
	assert.Equal(t, IntegrityValid, NormalizeIntegrity("Válido"))
	assert.Equal(t, IntegrityValid, NormalizeIntegrity(""))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "eficiencia", Fold("  Eficiência "))
	assert.Equal(t, "situacao", Fold("SITUAÇÃO"))
	assert.Equal(t, "numero de serie", Fold("Número de Série"))
}
