package tracker

import (
	"errors"
	"fmt"
	"image"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	stdWeightPosition = 1.0 / 20
	stdWeightVelocity = 1.0 / 160
)

// kalmanState is the constant-velocity state of one track:
// centre x, centre y, aspect ratio w/h, height, and their velocities.
type kalmanState struct {
	mean *mat.VecDense
	cov  *mat.Dense
}

type kalmanFilter struct {
	motion *mat.Dense
	update *mat.Dense
}

func newKalmanFilter() *kalmanFilter {
	motion := mat.NewDense(8, 8, nil)
	for i := 0; i < 8; i++ {
		motion.Set(i, i, 1)
	}
	for i := 0; i < 4; i++ {
		motion.Set(i, 4+i, 1)
	}

	update := mat.NewDense(4, 8, nil)
	for i := 0; i < 4; i++ {
		update.Set(i, i, 1)
	}

	return &kalmanFilter{motion: motion, update: update}
}

func diag(std []float64) *mat.Dense {
	d := mat.NewDense(len(std), len(std), nil)
	for i, v := range std {
		d.Set(i, i, v*v)
	}
	return d
}

func (kf *kalmanFilter) initiate(z [4]float64) kalmanState {
	mean := mat.NewVecDense(8, []float64{z[0], z[1], z[2], z[3], 0, 0, 0, 0})

	h := z[3]
	cov := diag([]float64{
		2 * stdWeightPosition * h,
		2 * stdWeightPosition * h,
		1e-2,
		2 * stdWeightPosition * h,
		10 * stdWeightVelocity * h,
		10 * stdWeightVelocity * h,
		1e-5,
		10 * stdWeightVelocity * h,
	})

	return kalmanState{mean: mean, cov: cov}
}

func (kf *kalmanFilter) predict(s *kalmanState) {
	h := s.mean.AtVec(3)
	noise := diag([]float64{
		stdWeightPosition * h,
		stdWeightPosition * h,
		1e-2,
		stdWeightPosition * h,
		stdWeightVelocity * h,
		stdWeightVelocity * h,
		1e-5,
		stdWeightVelocity * h,
	})

	mean := mat.NewVecDense(8, nil)
	mean.MulVec(kf.motion, s.mean)

	var tmp, cov mat.Dense
	tmp.Mul(kf.motion, s.cov)
	cov.Mul(&tmp, kf.motion.T())
	cov.Add(&cov, noise)

	s.mean = mean
	s.cov = &cov
}

// project maps the state into measurement space.
func (kf *kalmanFilter) project(s kalmanState) (*mat.VecDense, *mat.SymDense) {
	h := s.mean.AtVec(3)
	noise := []float64{
		stdWeightPosition * h,
		stdWeightPosition * h,
		1e-1,
		stdWeightPosition * h,
	}

	mean := mat.NewVecDense(4, nil)
	mean.MulVec(kf.update, s.mean)

	var tmp, full mat.Dense
	tmp.Mul(kf.update, s.cov)
	full.Mul(&tmp, kf.update.T())

	cov := mat.NewSymDense(4, nil)
	for i := 0; i < 4; i++ {
		for j := i; j < 4; j++ {
			cov.SetSym(i, j, full.At(i, j))
		}
		cov.SetSym(i, i, cov.At(i, i)+noise[i]*noise[i])
	}
	return mean, cov
}

// correct folds the measurement z into the state.
func (kf *kalmanFilter) correct(s *kalmanState, z [4]float64) error {
	projMean, projCov := kf.project(*s)

	var chol mat.Cholesky
	if ok := chol.Factorize(projCov); !ok {
		return errors.New("projected covariance is not positive definite")
	}

	var b mat.Dense
	b.Mul(s.cov, kf.update.T())

	// gainT is K transposed, 4x8
	var gainT mat.Dense
	if err := chol.SolveTo(&gainT, b.T()); err != nil {
		return fmt.Errorf("kalman gain: %w", err)
	}

	innovation := mat.NewVecDense(4, nil)
	innovation.SubVec(mat.NewVecDense(4, z[:]), projMean)

	delta := mat.NewVecDense(8, nil)
	delta.MulVec(gainT.T(), innovation)
	mean := mat.NewVecDense(8, nil)
	mean.AddVec(s.mean, delta)

	var tmp, shrink, cov mat.Dense
	tmp.Mul(gainT.T(), projCov)
	shrink.Mul(&tmp, &gainT)
	cov.Sub(s.cov, &shrink)

	s.mean = mean
	s.cov = &cov
	return nil
}

func toXYAH(r image.Rectangle) [4]float64 {
	w := float64(r.Dx())
	h := math.Max(float64(r.Dy()), 1)
	return [4]float64{
		float64(r.Min.X) + w/2,
		float64(r.Min.Y) + float64(r.Dy())/2,
		w / h,
		h,
	}
}

func (s kalmanState) rect() image.Rectangle {
	cx, cy, a, h := s.mean.AtVec(0), s.mean.AtVec(1), s.mean.AtVec(2), s.mean.AtVec(3)
	w := a * h
	return image.Rect(
		int(math.Round(cx-w/2)), int(math.Round(cy-h/2)),
		int(math.Round(cx+w/2)), int(math.Round(cy+h/2)),
	)
}
