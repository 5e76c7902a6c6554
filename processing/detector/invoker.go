package detector

import (
	"image"
	"math"

	"go.uber.org/zap"

	"trackview/internal/logger"
	"trackview/internal/models"
)

const debugRows = 5

type Invoker struct {
	model Model
}

func NewInvoker(model Model) *Invoker {
	return &Invoker{model: model}
}

// Swap installs a new model and closes the previous one.
func (inv *Invoker) Swap(model Model) {
	if inv.model != nil {
		if err := inv.model.Close(); err != nil {
			logger.Log().Warn("model close failed", zap.Error(err))
		}
	}
	inv.model = model
}

// Reset clears per-stream model state.
func (inv *Invoker) Reset() {
	if r, ok := inv.model.(Resetter); ok {
		r.Reset()
	}
}

func (inv *Invoker) Close() error {
	if inv.model == nil {
		return nil
	}
	err := inv.model.Close()
	inv.model = nil
	return err
}

// Detect runs the model on frame. Model errors and malformed output yield
// no detections.
func (inv *Invoker) Detect(frame image.Image) []models.Detection {
	if inv.model == nil {
		return nil
	}

	rows, err := inv.model.Infer(frame)
	if err != nil {
		logger.Log().Warn("inference failed", zap.Error(err))
		return nil
	}

	if ce := logger.Log().Check(zap.DebugLevel, "detector output"); ce != nil {
		ce.Write(zap.Int("rows", len(rows)), zap.Any("head", head(rows, debugRows)))
	}

	return Normalize(rows)
}

// Normalize converts raw rows into detections, dropping rows whose shape or
// values are invalid.
func Normalize(rows [][]float32) []models.Detection {
	dets := make([]models.Detection, 0, len(rows))

	for i, row := range rows {
		det, ok := normalizeRow(row)
		if !ok {
			logger.Log().Debug("dropping malformed row", zap.Int("row", i), zap.Int("len", len(row)))
			continue
		}
		dets = append(dets, det)
	}
	return dets
}

func normalizeRow(row []float32) (models.Detection, bool) {
	if len(row) != TrackedRowLen && len(row) != UntrackedRowLen {
		return models.Detection{}, false
	}
	for _, v := range row {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return models.Detection{}, false
		}
	}

	det := models.Detection{
		Box: models.Box{
			X1: int(row[0]),
			Y1: int(row[1]),
			X2: int(row[2]),
			Y2: int(row[3]),
		},
	}

	if len(row) == TrackedRowLen {
		id := int64(row[4])
		det.TrackID = &id
		det.Confidence = row[5]
		det.ClassIndex = int(row[6])
	} else {
		det.Confidence = row[4]
		det.ClassIndex = int(row[5])
	}

	if det.ClassIndex < 0 {
		return models.Detection{}, false
	}
	return det, true
}

func head(rows [][]float32, n int) [][]float32 {
	if len(rows) < n {
		return rows
	}
	return rows[:n]
}
