package rdo

import "testing"

func TestAutoSelectSpeedReseedsOnZero(t *testing.T) {
	s, _, _ := newTestSearch()
	s.Speed = 9
	s.RecordTimes(0, 0)
	s.AutoSelectSpeed(30, 0)
	if s.Speed != 4 {
		t.Errorf("speed = %d, want reseed to 4 on empty measurements", s.Speed)
	}
}

func TestAutoSelectSpeedRaisesWhenSlow(t *testing.T) {
	s, _, _ := newTestSearch()
	s.Speed = 8
	// Budget at 30fps, cpu-used 0: ~33333us. Report times far above.
	s.RecordTimes(100000, 200000)
	s.AutoSelectSpeed(30, 0)
	if s.Speed != 12 {
		t.Errorf("speed = %d, want 12 (+4) when hopelessly behind budget", s.Speed)
	}

	s.Speed = 15
	s.RecordTimes(100000, 200000)
	s.AutoSelectSpeed(30, 0)
	if s.Speed != 16 {
		t.Errorf("speed = %d, want the 16 cap", s.Speed)
	}
}

func TestAutoSelectSpeedDropsWhenFast(t *testing.T) {
	s, _, _ := newTestSearch()
	s.Speed = 8
	// Both times comfortably under budget: the hysteresis test
	// budget*100 > encode*thresh passes and speed steps down.
	s.RecordTimes(1000, 2000)
	s.AutoSelectSpeed(30, 0)
	if s.Speed != 7 {
		t.Errorf("speed = %d, want 7", s.Speed)
	}
}

func TestAutoSelectSpeedFloor(t *testing.T) {
	s, _, _ := newTestSearch()
	s.Speed = 4
	s.RecordTimes(1000, 2000)
	s.AutoSelectSpeed(30, 0)
	if s.Speed < 4 {
		t.Errorf("speed = %d, below the real-time floor", s.Speed)
	}
}

func TestAutoSelectSpeedInvalidFrameRate(t *testing.T) {
	s, _, _ := newTestSearch()
	s.Speed = 6
	s.AutoSelectSpeed(0, 0)
	if s.Speed != 6 {
		t.Error("invalid frame rate must leave the knob untouched")
	}
}
