package rdo

// Adaptive speed selection: at each frame boundary the encoder
// compares the time spent picking modes against a budget derived from
// the frame rate and the cpu-used setting, and walks the Speed knob
// up or down with per-level hysteresis.

type speedState struct {
	avgPickModeTime int // microseconds per frame
	avgEncodeTime   int
}

// RecordTimes feeds the per-frame timing measurements consumed by
// AutoSelectSpeed.
func (s *Search) RecordTimes(pickModeMicros, encodeMicros int) {
	s.speedState.avgPickModeTime = pickModeMicros
	s.speedState.avgEncodeTime = encodeMicros
}

// AutoSelectSpeed adjusts the Speed knob from the measured timings.
// cpuUsed scales the budget: at 16 the budget is zero and Speed is
// pinned high; at 0 the whole frame interval is available.
func (s *Search) AutoSelectSpeed(frameRate float64, cpuUsed int) {
	if frameRate <= 0 {
		return
	}
	budget := int(1000000 / frameRate)
	budget = budget * (16 - cpuUsed) / 16

	st := &s.speedState

	if st.avgPickModeTime < budget && st.avgEncodeTime-st.avgPickModeTime < budget {
		if st.avgPickModeTime == 0 {
			s.Speed = 4
		} else {
			if budget*100 < st.avgEncodeTime*95 {
				s.Speed += 2
				st.avgPickModeTime = 0
				st.avgEncodeTime = 0
				if s.Speed > 16 {
					s.Speed = 16
				}
			}
			if budget*100 > st.avgEncodeTime*autoSpeedThresh[clampSpeed(s.Speed)] {
				s.Speed--
				st.avgPickModeTime = 0
				st.avgEncodeTime = 0
				if s.Speed < 4 {
					s.Speed = 4
				}
			}
		}
	} else {
		s.Speed += 4
		if s.Speed > 16 {
			s.Speed = 16
		}
		st.avgPickModeTime = 0
		st.avgEncodeTime = 0
	}
}

func clampSpeed(v int) int {
	if v < 0 {
		return 0
	}
	if v > 16 {
		return 16
	}
	return v
}
