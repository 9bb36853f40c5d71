package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func slot(date string, coeff Coefficient) CalendarSlot {
	return CalendarSlot{Date: date, Coefficient: coeff}
}

func TestSelectPrefersFreeWithLowerCoefficientPriority(t *testing.T) {
	slots := []CalendarSlot{
		slot("10 декабря", Coefficient{Value: 20}),
		slot("11 декабря", Coefficient{Value: 5}),
		slot("12 декабря", Coefficient{Free: true}),
	}
	settings := BookingSettings{
		Mode:        ModeAnyDate,
		Coefficient: CoefficientTarget{Any: true},
		Priority:    PriorityLowerCoefficient,
	}

	got := Select(slots, settings)
	require.Len(t, got, 3)
	assert.Equal(t, "12 декабря", got[0].Date)
	assert.Equal(t, "11 декабря", got[1].Date)
	assert.Equal(t, "10 декабря", got[2].Date)
}

func TestSelectCalendarOrderKeepsPresentation(t *testing.T) {
	slots := []CalendarSlot{
		slot("10 декабря", Coefficient{Value: 20}),
		slot("11 декабря", Coefficient{Free: true}),
	}
	settings := BookingSettings{
		Mode:        ModeAnyDate,
		Coefficient: CoefficientTarget{Any: true},
		Priority:    PriorityCalendarOrder,
	}

	got := Select(slots, settings)
	require.Len(t, got, 2)
	assert.Equal(t, "10 декабря", got[0].Date)
}

func TestSelectSpecificDatesIntersects(t *testing.T) {
	slots := []CalendarSlot{
		slot("10 декабря", Coefficient{Free: true}),
		slot("11 декабря", Coefficient{Free: true}),
		slot("12 декабря", Coefficient{Free: true}),
	}
	settings := BookingSettings{
		Mode:        ModeSpecificDates,
		TargetDates: []string{"12 декабря", "10 декабря"},
		Coefficient: CoefficientTarget{Any: true},
		Priority:    PriorityCalendarOrder,
	}

	got := Select(slots, settings)
	require.Len(t, got, 2)
	// calendar order wins over target-date order
	assert.Equal(t, "10 декабря", got[0].Date)
	assert.Equal(t, "12 декабря", got[1].Date)
}

func TestSelectSkipsDisabled(t *testing.T) {
	slots := []CalendarSlot{
		{Date: "10 декабря", Coefficient: Coefficient{Free: true}, Disabled: true},
		slot("11 декабря", Coefficient{Free: true}),
	}
	settings := BookingSettings{
		Mode:        ModeAnyDate,
		Coefficient: CoefficientTarget{Any: true},
		Priority:    PriorityCalendarOrder,
	}

	got := Select(slots, settings)
	require.Len(t, got, 1)
	assert.Equal(t, "11 декабря", got[0].Date)
}

func TestSelectCoefficientTargets(t *testing.T) {
	slots := []CalendarSlot{
		slot("1", Coefficient{Value: 7}),
		slot("2", Coefficient{Free: true}),
		slot("3", Coefficient{Value: 3}),
	}

	free := Select(slots, BookingSettings{
		Mode: ModeAnyDate, Coefficient: CoefficientTarget{Free: true}, Priority: PriorityCalendarOrder,
	})
	require.Len(t, free, 1)
	assert.Equal(t, "2", free[0].Date)

	capped := Select(slots, BookingSettings{
		Mode: ModeAnyDate, Coefficient: CoefficientTarget{Max: 5}, Priority: PriorityCalendarOrder,
	})
	require.Len(t, capped, 2)
	// a free slot always satisfies a numeric cap
	assert.Equal(t, "2", capped[0].Date)
	assert.Equal(t, "3", capped[1].Date)
}

func TestSelectStableTieBreak(t *testing.T) {
	slots := []CalendarSlot{
		slot("first", Coefficient{Value: 5}),
		slot("second", Coefficient{Value: 5}),
		slot("third", Coefficient{Value: 1}),
	}
	got := Select(slots, BookingSettings{
		Mode: ModeAnyDate, Coefficient: CoefficientTarget{Any: true}, Priority: PriorityLowerCoefficient,
	})
	require.Len(t, got, 3)
	assert.Equal(t, "third", got[0].Date)
	assert.Equal(t, "first", got[1].Date)
	assert.Equal(t, "second", got[2].Date)
}

func TestSelectNothingQualifies(t *testing.T) {
	slots := []CalendarSlot{slot("10 декабря", Coefficient{Value: 9})}
	got := Select(slots, BookingSettings{
		Mode: ModeAnyDate, Coefficient: CoefficientTarget{Max: 2}, Priority: PriorityCalendarOrder,
	})
	assert.Empty(t, got)
	assert.Empty(t, Select(nil, BookingSettings{Mode: ModeAnyDate, Coefficient: CoefficientTarget{Any: true}}))
}
