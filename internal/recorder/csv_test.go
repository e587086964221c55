package recorder

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func floatPtr(v float64) *float64 {
	return &v
}

func readRows(t *testing.T, path string) [][]string {
	f, err := os.Open(path)
	assert.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	assert.NoError(t, err)
	return rows
}

func TestCSVRecorderWritesHeaderAndRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticks.csv")
	r := NewCSVRecorder(path, zaptest.NewLogger(t))
	r.nowFn = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }

	err := r.Record(domain.TickRecord{
		Snapshot: domain.SensorSnapshot{
			PH:          floatPtr(7.1),
			Temperature: 26.5,
			Pressure:    1.2,
			Current:     floatPtr(3.4),
			WaterLevel:  55,
			Motion:      true,
		},
		Applied: []domain.Action{
			{Actuator: domain.ActuatorChlorinePump, Command: true},
			{Actuator: domain.ActuatorPoolCover, Command: false},
		},
	})
	assert.NoError(t, err)

	rows := readRows(t, path)
	assert.Len(t, rows, 2)
	assert.Equal(t, []string{"Timestamp", "pH", "Temperature", "Pressure", "Current", "WaterLevel", "Motion", "Actions"}, rows[0])
	assert.Equal(t, []string{
		"2026-08-30T12:00:00Z", "7.1", "26.5", "1.2", "3.4", "55", "true",
		"chlorinePump:ON|poolCover:OFF",
	}, rows[1])
}

func TestCSVRecorderMissingProbesLeaveEmptyCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticks.csv")
	r := NewCSVRecorder(path, zaptest.NewLogger(t))

	err := r.Record(domain.TickRecord{Snapshot: domain.SensorSnapshot{Temperature: 20}})
	assert.NoError(t, err)

	rows := readRows(t, path)
	assert.Equal(t, "", rows[1][1], "pH cell")
	assert.Equal(t, "", rows[1][4], "current cell")
	assert.Equal(t, "", rows[1][7], "actions cell")
}

func TestCSVRecorderAppendsWithoutDuplicateHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticks.csv")
	r := NewCSVRecorder(path, zaptest.NewLogger(t))

	assert.NoError(t, r.Record(domain.TickRecord{}))
	assert.NoError(t, r.Record(domain.TickRecord{}))

	rows := readRows(t, path)
	assert.Len(t, rows, 3)
	assert.Equal(t, "Timestamp", rows[0][0])
	assert.NotEqual(t, "Timestamp", rows[1][0])
}

func TestCSVRecorderRotate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticks.csv")
	r := NewCSVRecorder(path, zaptest.NewLogger(t))

	assert.NoError(t, r.Record(domain.TickRecord{}))
	assert.NoError(t, r.Rotate())

	_, err := os.Stat(path + ".old")
	assert.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// the next record starts a fresh file with its own header
	assert.NoError(t, r.Record(domain.TickRecord{}))
	rows := readRows(t, path)
	assert.Len(t, rows, 2)
	assert.Equal(t, "Timestamp", rows[0][0])
}

func TestCSVRecorderRotateWithoutFileIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticks.csv")
	r := NewCSVRecorder(path, zaptest.NewLogger(t))
	assert.NoError(t, r.Rotate())
}
