package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	records := []Record{
		{Tag: "KVN 30/23", Area: "Processo 01", Status: StatusOperational, EfficiencyPercent: 95, DaysSinceService: 2},
		{Tag: "KVN 31/23", Area: "Processo 01", Status: StatusAlert, EfficiencyPercent: 60, DaysSinceService: 10},
		{Tag: "TC-3", Area: "Utilidades", Status: StatusWarning, EfficiencyPercent: 80, DaysSinceService: 7},
		{Tag: "TC-4", Area: "", Status: StatusStopped, EfficiencyPercent: 60},
	}

	t.Run("all areas", func(t *testing.T) {
		s := Summarize(records, "")

		assert.Equal(t, 4, s.Total)
		assert.Equal(t, 1, s.Alert)
		assert.Equal(t, 1, s.Warning)
		assert.Equal(t, 1, s.Operational)
		assert.Equal(t, 1, s.Stopped)
		assert.Equal(t, 73.8, s.AverageEfficiency)

		require.Len(t, s.Groups, 3)
		assert.Equal(t, "Indefinido", s.Groups[0].Name)
		assert.Equal(t, "Processo 01", s.Groups[1].Name)
		assert.Equal(t, 77.5, s.Groups[1].AverageEfficiency)
		assert.Equal(t, 6.0, s.Groups[1].AverageDays)
		assert.Equal(t, "Utilidades", s.Groups[2].Name)
	})

	t.Run("single area groups by tag prefix", func(t *testing.T) {
		s := Summarize(records, "Processo 01")

		assert.Equal(t, 2, s.Total)
		require.Len(t, s.Groups, 2)
		assert.Equal(t, "KVN 31", s.Groups[0].Name)
		assert.Equal(t, "KVN 30", s.Groups[1].Name)
	})

	t.Run("empty input", func(t *testing.T) {
		s := Summarize(nil, "")
		assert.Zero(t, s.Total)
		assert.Zero(t, s.AverageEfficiency)
		assert.Empty(t, s.Groups)
	})
}

func TestAreas(t *testing.T) {
	got := Areas([]Record{{Area: "b"}, {Area: "a"}, {Area: ""}, {Area: "b"}})
	assert.Equal(t, []string{"a", "b"}, got)
}
