package killzone

import (
	"time"

	"github.com/Alias1177/SmartMoney/internal/model"
)

// window is a killzone with its times converted to minutes of the UTC day.
type window struct {
	model.Killzone
	start, end, peak int
}

func hm(h, m int) int { return h*60 + m }

// sessions are fixed by definition. Priority resolves overlaps: the most specific window wins.
var sessions = []window{
	{Killzone: model.Killzone{Name: model.SessionOverlap, Start: "12:00", End: "16:00", Peak: "13:00", BaselineEfficiency: 0.95, Priority: 3}, start: hm(12, 0), end: hm(16, 0), peak: hm(13, 0)},
	{Killzone: model.Killzone{Name: model.SessionPowerHour, Start: "19:00", End: "20:00", Peak: "19:30", BaselineEfficiency: 0.70, Priority: 3}, start: hm(19, 0), end: hm(20, 0), peak: hm(19, 30)},
	{Killzone: model.Killzone{Name: model.SessionLondon, Start: "07:00", End: "16:00", Peak: "08:00", BaselineEfficiency: 0.85, Priority: 2}, start: hm(7, 0), end: hm(16, 0), peak: hm(8, 0)},
	{Killzone: model.Killzone{Name: model.SessionNewYork, Start: "12:00", End: "21:00", Peak: "13:30", BaselineEfficiency: 0.80, Priority: 2}, start: hm(12, 0), end: hm(21, 0), peak: hm(13, 30)},
	{Killzone: model.Killzone{Name: model.SessionAsian, Start: "00:00", End: "06:00", Peak: "02:00", BaselineEfficiency: 0.55, Priority: 1}, start: hm(0, 0), end: hm(6, 0), peak: hm(2, 0)},
}

func minuteOfDay(t time.Time) int {
	u := t.UTC()
	return u.Hour()*60 + u.Minute()
}

func (w window) contains(minute int) bool {
	if w.start <= w.end {
		return minute >= w.start && minute < w.end
	}
	return minute >= w.start || minute < w.end
}

// peakProximity is 1 at the peak and falls to 0 at the farther window edge.
func (w window) peakProximity(minute int) float64 {
	half := w.peak - w.start
	if d := w.end - w.peak; d > half {
		half = d
	}
	if half <= 0 {
		return 0
	}
	dist := minute - w.peak
	if dist < 0 {
		dist = -dist
	}
	return 1 - float64(dist)/float64(half)
}

// CurrentSession returns the session active at now. When several windows contain now the
// overlap and power-hour windows take precedence over their parent sessions.
func CurrentSession(now time.Time) model.SessionName {
	minute := minuteOfDay(now)
	best := model.SessionOffHours
	bestPriority := 0
	for _, w := range sessions {
		if w.contains(minute) && w.Priority > bestPriority {
			best = w.Name
			bestPriority = w.Priority
		}
	}
	return best
}

// InSession reports whether t falls inside the named window, ignoring precedence.
func InSession(name model.SessionName, t time.Time) bool {
	w, ok := lookup(name)
	return ok && w.contains(minuteOfDay(t))
}

// Sessions returns the fixed killzone definitions.
func Sessions() []model.Killzone {
	out := make([]model.Killzone, len(sessions))
	for i, w := range sessions {
		out[i] = w.Killzone
	}
	return out
}

// Weight rates how much institutional participation a session usually carries.
func Weight(name model.SessionName) float64 {
	switch name {
	case model.SessionOverlap, model.SessionLondon, model.SessionNewYork:
		return 1.0
	case model.SessionPowerHour:
		return 0.9
	case model.SessionAsian:
		return 0.6
	default:
		return 0.3
	}
}

// Baseline returns the baseline efficiency constant of a session, 0 for off hours.
func Baseline(name model.SessionName) float64 {
	if w, ok := lookup(name); ok {
		return w.BaselineEfficiency
	}
	return 0
}

func lookup(name model.SessionName) (window, bool) {
	for _, w := range sessions {
		if w.Name == name {
			return w, true
		}
	}
	return window{}, false
}
