package countdown

import "fmt"

// ExpiredText is shown once the target has been overrun.
const ExpiredText = "  0.00.00.00"

// Format lays r out as "ddd.hh.mm.ss" with days right-justified, so the
// digit positions do not shift as the day count changes.
func Format(r Reading) string {
	if r.Expired() {
		return ExpiredText
	}
	return fmt.Sprintf("%3d.%02d.%02d.%02d", r.Days, r.Hours, r.Minutes, r.Seconds)
}

// BlinkOn returns the blink phase for r: on during the first and third
// quarter of each second, off otherwise.
func BlinkOn(r Reading) bool {
	us := r.Micros
	return us <= 250000 || (us > 500000 && us <= 750000)
}
