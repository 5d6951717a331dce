package market

import "time"

// PrivateSaleWindow is the reserved early-access selling slot, expressed in
// local time. Start is inclusive, End exclusive, both whole hours.
type PrivateSaleWindow struct {
	Day       time.Weekday
	StartHour int
	EndHour   int
	Location  *time.Location
}

func DefaultPrivateSaleWindow(loc *time.Location) PrivateSaleWindow {
	if loc == nil {
		loc = time.Local
	}
	return PrivateSaleWindow{Day: time.Friday, StartHour: 17, EndHour: 18, Location: loc}
}

// Contains reports whether t falls inside the window. Informational only,
// it never blocks a sale.
func (w PrivateSaleWindow) Contains(t time.Time) bool {
	loc := w.Location
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	if local.Weekday() != w.Day {
		return false
	}
	h := local.Hour()
	return h >= w.StartHour && h < w.EndHour
}
