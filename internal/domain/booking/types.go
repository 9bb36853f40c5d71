package booking

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode controls which calendar dates a supply may be booked on.
type Mode string

const (
	// ModeSpecificDates books only on the configured target dates.
	ModeSpecificDates Mode = "specific_dates"
	// ModeAnyDate books on any date the calendar offers.
	ModeAnyDate Mode = "any_date"
)

// Priority controls the ordering of qualifying slots.
type Priority string

const (
	// PriorityLowerCoefficient prefers the cheapest slot (free counts as lowest).
	PriorityLowerCoefficient Priority = "lower_coefficient"
	// PriorityCalendarOrder keeps the order the portal calendar presents dates in.
	PriorityCalendarOrder Priority = "calendar_order"
)

// Coefficient is the portal's scarcity score for a slot: either the "free"
// label or a non-negative integer tier.
type Coefficient struct {
	Free  bool
	Value int
}

// Less orders coefficients ascending with free below every numeric value.
func (c Coefficient) Less(other Coefficient) bool {
	if c.Free {
		return !other.Free
	}
	if other.Free {
		return false
	}
	return c.Value < other.Value
}

func (c Coefficient) String() string {
	if c.Free {
		return "free"
	}
	return strconv.Itoa(c.Value)
}

// ParseCoefficient interprets the coefficient text of a calendar cell.
// The portal renders either the free label or a value like "×5".
func ParseCoefficient(text, freeLabel string) (Coefficient, error) {
	t := strings.TrimSpace(text)
	if t == strings.TrimSpace(freeLabel) {
		return Coefficient{Free: true}, nil
	}
	t = strings.TrimSpace(strings.ReplaceAll(t, "×", ""))
	v, err := strconv.Atoi(t)
	if err != nil {
		return Coefficient{}, fmt.Errorf("coefficient %q: %w", text, err)
	}
	return Coefficient{Value: v}, nil
}

// CoefficientTarget is the acceptable-scarcity setting of a supply:
// exactly one of Any, Free, or a maximum numeric tier.
type CoefficientTarget struct {
	Any  bool
	Free bool
	Max  int
}

// Accepts reports whether a slot coefficient satisfies the target.
// A free slot satisfies every numeric tier; a numeric slot never
// satisfies the free-only target, whatever its value.
func (t CoefficientTarget) Accepts(c Coefficient) bool {
	switch {
	case t.Any:
		return true
	case t.Free:
		return c.Free
	case c.Free:
		return true
	default:
		return c.Value <= t.Max
	}
}

func (t CoefficientTarget) String() string {
	switch {
	case t.Any:
		return "any"
	case t.Free:
		return "free"
	default:
		return strconv.Itoa(t.Max)
	}
}

// ParseCoefficientTarget parses "any", "free" or a numeric tier.
func ParseCoefficientTarget(s string) (CoefficientTarget, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "any":
		return CoefficientTarget{Any: true}, nil
	case "free":
		return CoefficientTarget{Free: true}, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return CoefficientTarget{}, fmt.Errorf("invalid coefficient target %q", s)
	}
	return CoefficientTarget{Max: v}, nil
}

// ParseMode accepts the canonical lowercase names and the portal-config
// spellings the reference data used.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "specific_dates":
		return ModeSpecificDates, nil
	case "any_date":
		return ModeAnyDate, nil
	}
	return "", fmt.Errorf("invalid booking mode %q", s)
}

func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lower_coefficient", "by_lower_coeff":
		return PriorityLowerCoefficient, nil
	case "calendar_order", "by_closest_date", "":
		// calendar order is the default when no priority is configured
		return PriorityCalendarOrder, nil
	}
	return "", fmt.Errorf("invalid booking priority %q", s)
}

// BookingSettings is immutable once a supply task starts processing it.
type BookingSettings struct {
	Mode        Mode
	TargetDates []string
	Coefficient CoefficientTarget
	Priority    Priority
}

// Validate rejects settings the engine cannot act on.
func (s BookingSettings) Validate() error {
	switch s.Mode {
	case ModeSpecificDates:
		if len(s.TargetDates) == 0 {
			return fmt.Errorf("mode %s requires target dates", s.Mode)
		}
	case ModeAnyDate:
	default:
		return fmt.Errorf("invalid booking mode %q", s.Mode)
	}
	switch s.Priority {
	case PriorityLowerCoefficient, PriorityCalendarOrder:
	default:
		return fmt.Errorf("invalid booking priority %q", s.Priority)
	}
	return nil
}

// Status is the mutable part of a supply. The supply task owns Booked,
// ReservationID and Attempts; the identity guard owns Active. All writes
// go through the store, never through direct field assignment.
type Status struct {
	Active        bool
	Booked        bool
	ReservationID string
	Attempts      int
}

// Supply is one delivery-slot reservation request tied to a portal order.
type Supply struct {
	PreorderID string
	Warehouse  string
	Settings   BookingSettings
	Status     Status
}

// CalendarSlot is one observed calendar cell. Slots are rebuilt on every
// calendar read and never persisted. Ref is the opaque handle to the
// interactive cell element, owned by whatever read the calendar.
type CalendarSlot struct {
	Date        string
	Coefficient Coefficient
	Disabled    bool
	Ref         any
}

// Account is one marketplace identity with its own browser session.
type Account struct {
	ID       string
	Tier     Tier
	ChatID   string
	Supplies []Supply
}
