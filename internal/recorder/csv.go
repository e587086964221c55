package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/port"

	"go.uber.org/zap"
)

const maxLogSizeBytes = 10 * 1024 * 1024

var csvHeader = []string{"Timestamp", "pH", "Temperature", "Pressure", "Current", "WaterLevel", "Motion", "Actions"}

// CSVRecorder appends one row per control-loop tick to a CSV file. When the
// file grows past 10MB it is rotated to <path>.old, keeping at most one
// generation of history on the SD card.
type CSVRecorder struct {
	mu     sync.Mutex
	path   string
	nowFn  func() time.Time
	logger *zap.Logger
}

func NewCSVRecorder(path string, logger *zap.Logger) *CSVRecorder {
	return &CSVRecorder{
		path:   path,
		nowFn:  time.Now,
		logger: logger.With(zap.String("service", "recorder")),
	}
}

// Record appends one tick row, creating the file with a header when needed.
func (r *CSVRecorder) Record(rec domain.TickRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.rotateIfNeeded(); err != nil {
		// rotation failure must not lose the row
		r.logger.Warn("log rotation failed", zap.Error(err))
	}

	writeHeader := false
	if info, err := os.Stat(r.path); os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		writeHeader = true
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open tick log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
	}
	if err := w.Write(r.row(rec)); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// Rotate forces a rotation regardless of size. Wired to the daily quartz job.
func (r *CSVRecorder) Rotate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rotate()
}

func (r *CSVRecorder) rotateIfNeeded() error {
	info, err := os.Stat(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() < maxLogSizeBytes {
		return nil
	}
	return r.rotate()
}

func (r *CSVRecorder) rotate() error {
	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		return nil
	}
	if err := os.Rename(r.path, r.path+".old"); err != nil {
		return fmt.Errorf("rotate tick log: %w", err)
	}
	r.logger.Info("tick log rotated", zap.String("path", r.path))
	return nil
}

func (r *CSVRecorder) row(rec domain.TickRecord) []string {
	s := rec.Snapshot
	return []string{
		r.nowFn().Format(time.RFC3339),
		optionalCell(s.PH),
		formatFloat(s.Temperature),
		formatFloat(s.Pressure),
		optionalCell(s.Current),
		formatFloat(s.WaterLevel),
		strconv.FormatBool(s.Motion),
		joinActions(rec.Applied),
	}
}

// joinActions renders applied actions as actuator:command pairs joined by a
// pipe, keeping the row a single CSV cell.
func joinActions(actions []domain.Action) string {
	if len(actions) == 0 {
		return ""
	}
	parts := make([]string, 0, len(actions))
	for _, a := range actions {
		state := "OFF"
		if a.Command {
			state = "ON"
		}
		parts = append(parts, string(a.Actuator)+":"+state)
	}
	return strings.Join(parts, "|")
}

func optionalCell(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var _ port.TickRecorder = (*CSVRecorder)(nil)
