// Package tracker assigns persistent IDs to detections across frames using
// two-stage IoU association in the style of ByteTrack. Each track carries a
// constant-velocity Kalman filter and is matched on its predicted box.
package tracker

import (
	"image"
	"sort"
)

type Object struct {
	Rect  image.Rectangle
	Class int
	Prob  float32
}

type Track struct {
	ID    int64
	Rect  image.Rectangle
	Class int
	Prob  float32
}

type strack struct {
	Track
	lastSeen int

	state     kalmanState
	predicted image.Rectangle
}

type Tracker struct {
	cfg Config
	kf  *kalmanFilter

	frameID int
	nextID  int64
	tracked []*strack
	lost    []*strack
}

func New(cfg Config) *Tracker {
	t := &Tracker{cfg: cfg, kf: newKalmanFilter()}
	t.Reset()
	return t
}

// Reset forgets every track and restarts ID assignment.
func (t *Tracker) Reset() {
	t.frameID = 0
	t.nextID = 0
	t.tracked = nil
	t.lost = nil
}

// Update associates objects with existing tracks and returns the tracks
// matched or created on this frame, in the order of objects.
func (t *Tracker) Update(objects []Object) []Track {
	t.frameID++
	t.predict()

	var high, low []int
	for i, o := range objects {
		switch {
		case o.Prob >= t.cfg.TrackHighThresh:
			high = append(high, i)
		case o.Prob >= t.cfg.TrackLowThresh:
			low = append(low, i)
		}
	}

	assigned := make(map[int]*strack)

	// first pass: high-score detections against tracked and lost tracks
	pool := append(append([]*strack{}, t.tracked...), t.lost...)
	pool, unmatchedHigh := t.associate(pool, objects, high, 1-t.cfg.MatchThresh, assigned)

	// second pass: low-score detections only against still-tracked tracks
	var remainTracked []*strack
	for _, s := range pool {
		if s.lastSeen == t.frameID-1 {
			remainTracked = append(remainTracked, s)
		}
	}
	t.associate(remainTracked, objects, low, 0.5, assigned)

	for _, i := range unmatchedHigh {
		if objects[i].Prob < t.cfg.NewTrackThresh {
			continue
		}
		t.nextID++
		assigned[i] = &strack{Track: Track{ID: t.nextID}}
		t.apply(assigned[i], objects[i])
	}

	t.refresh(assigned)

	out := make([]Track, 0, len(assigned))
	for i := range objects {
		if s, ok := assigned[i]; ok {
			out = append(out, s.Track)
		}
	}
	return out
}

type pair struct {
	track int
	det   int
	iou   float64
}

// associate greedily matches tracks to the detections in idx by descending
// IoU and returns the unmatched tracks and detections.
func (t *Tracker) associate(tracks []*strack, objects []Object, idx []int, minIoU float32, assigned map[int]*strack) ([]*strack, []int) {
	var pairs []pair
	for ti, s := range tracks {
		for _, di := range idx {
			iou := IoU(s.predicted, objects[di].Rect)
			if iou > 0 && iou >= float64(minIoU) {
				pairs = append(pairs, pair{track: ti, det: di, iou: iou})
			}
		}
	}

	sort.SliceStable(pairs, func(a, b int) bool { return pairs[a].iou > pairs[b].iou })

	usedTrack := make(map[int]bool)
	usedDet := make(map[int]bool)
	for _, p := range pairs {
		if usedTrack[p.track] || usedDet[p.det] {
			continue
		}
		usedTrack[p.track] = true
		usedDet[p.det] = true
		assigned[p.det] = tracks[p.track]
		t.apply(tracks[p.track], objects[p.det])
	}

	var restTracks []*strack
	for ti, s := range tracks {
		if !usedTrack[ti] {
			restTracks = append(restTracks, s)
		}
	}
	var restDets []int
	for _, di := range idx {
		if !usedDet[di] {
			restDets = append(restDets, di)
		}
	}
	return restTracks, restDets
}

// predict advances every live track by one frame. Lost tracks stop growing.
func (t *Tracker) predict() {
	for _, s := range t.tracked {
		t.kf.predict(&s.state)
		s.predicted = s.state.rect()
	}
	for _, s := range t.lost {
		s.state.mean.SetVec(7, 0)
		t.kf.predict(&s.state)
		s.predicted = s.state.rect()
	}
}

func (t *Tracker) apply(s *strack, o Object) {
	z := toXYAH(o.Rect)
	if s.state.mean == nil {
		s.state = t.kf.initiate(z)
	} else if err := t.kf.correct(&s.state, z); err != nil {
		s.state = t.kf.initiate(z)
	}

	s.Rect = o.Rect
	s.Class = o.Class
	s.Prob = o.Prob
	s.lastSeen = t.frameID
}

// refresh moves tracks between the tracked and lost lists and drops tracks
// unseen for longer than the track buffer.
func (t *Tracker) refresh(assigned map[int]*strack) {
	all := append(append([]*strack{}, t.tracked...), t.lost...)
	for _, s := range assigned {
		if !contains(all, s) {
			all = append(all, s)
		}
	}

	t.tracked, t.lost = nil, nil
	for _, s := range all {
		switch {
		case s.lastSeen == t.frameID:
			t.tracked = append(t.tracked, s)
		case t.frameID-s.lastSeen <= t.cfg.TrackBuffer:
			t.lost = append(t.lost, s)
		}
	}

	sort.Slice(t.tracked, func(a, b int) bool { return t.tracked[a].ID < t.tracked[b].ID })
}

func contains(list []*strack, s *strack) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// Active returns the number of tracks seen on the last frame.
func (t *Tracker) Active() int { return len(t.tracked) }

func IoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	interArea := float64(inter.Dx() * inter.Dy())
	union := float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}
