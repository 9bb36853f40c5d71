package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/example/supplybot/internal/domain/booking"
)

// The supplies file is the declarative input of a run: which accounts exist
// and what each of them wants booked. Raw yaml shapes are kept separate from
// the domain types so string fields are parsed and validated in one place.

type suppliesFile struct {
	Accounts []rawAccount `yaml:"accounts"`
}

type rawAccount struct {
	ID       string      `yaml:"id"`
	Tier     string      `yaml:"tier"`
	ChatID   string      `yaml:"telegram_chat_id"`
	Supplies []rawSupply `yaml:"supplies"`
}

type rawSupply struct {
	PreorderID string     `yaml:"preorder_id"`
	Warehouse  string     `yaml:"warehouse"`
	Active     *bool      `yaml:"active"`
	Booking    rawBooking `yaml:"booking"`
}

type rawBooking struct {
	Mode        string   `yaml:"mode"`
	Dates       []string `yaml:"dates"`
	Coefficient string   `yaml:"coefficient"`
	Priority    string   `yaml:"priority"`
}

// LoadSupplies reads and validates the supplies file.
func LoadSupplies(path string) ([]booking.Account, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read supplies file: %w", err)
	}
	var f suppliesFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse supplies file: %w", err)
	}
	if len(f.Accounts) == 0 {
		return nil, fmt.Errorf("supplies file %s defines no accounts", path)
	}

	accounts := make([]booking.Account, 0, len(f.Accounts))
	for _, ra := range f.Accounts {
		if ra.ID == "" {
			return nil, fmt.Errorf("account without id in %s", path)
		}
		tier, err := booking.ParseTier(ra.Tier)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", ra.ID, err)
		}
		acct := booking.Account{ID: ra.ID, Tier: tier, ChatID: ra.ChatID}
		for _, rs := range ra.Supplies {
			s, err := parseSupply(rs)
			if err != nil {
				return nil, fmt.Errorf("account %s: %w", ra.ID, err)
			}
			acct.Supplies = append(acct.Supplies, s)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}

func parseSupply(rs rawSupply) (booking.Supply, error) {
	if rs.PreorderID == "" {
		return booking.Supply{}, fmt.Errorf("supply without preorder_id")
	}
	mode, err := booking.ParseMode(rs.Booking.Mode)
	if err != nil {
		return booking.Supply{}, fmt.Errorf("supply %s: %w", rs.PreorderID, err)
	}
	coeff, err := booking.ParseCoefficientTarget(rs.Booking.Coefficient)
	if err != nil {
		return booking.Supply{}, fmt.Errorf("supply %s: %w", rs.PreorderID, err)
	}
	prio, err := booking.ParsePriority(rs.Booking.Priority)
	if err != nil {
		return booking.Supply{}, fmt.Errorf("supply %s: %w", rs.PreorderID, err)
	}
	s := booking.Supply{
		PreorderID: rs.PreorderID,
		Warehouse:  rs.Warehouse,
		Settings: booking.BookingSettings{
			Mode:        mode,
			TargetDates: rs.Booking.Dates,
			Coefficient: coeff,
			Priority:    prio,
		},
		Status: booking.Status{Active: rs.Active == nil || *rs.Active},
	}
	if err := s.Settings.Validate(); err != nil {
		return booking.Supply{}, fmt.Errorf("supply %s: %w", rs.PreorderID, err)
	}
	return s, nil
}
