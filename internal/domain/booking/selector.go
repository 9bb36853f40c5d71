package booking

import "sort"

// Select returns the qualifying slots for the given settings, best first.
// It is a pure function over the observed slot list: the input order must be
// the calendar presentation order, which doubles as the tie-break and as the
// final order when the priority is PriorityCalendarOrder.
func Select(slots []CalendarSlot, settings BookingSettings) []CalendarSlot {
	var out []CalendarSlot
	for _, s := range slots {
		if settings.Mode == ModeSpecificDates && !containsDate(settings.TargetDates, s.Date) {
			continue
		}
		if s.Disabled {
			continue
		}
		if !settings.Coefficient.Accepts(s.Coefficient) {
			continue
		}
		out = append(out, s)
	}
	if settings.Priority == PriorityLowerCoefficient {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Coefficient.Less(out[j].Coefficient)
		})
	}
	return out
}

func containsDate(dates []string, d string) bool {
	for _, t := range dates {
		if t == d {
			return true
		}
	}
	return false
}
