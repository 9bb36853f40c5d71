package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/supplybot/internal/domain/booking"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "supplies.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadSupplies(t *testing.T) {
	path := writeFile(t, `
accounts:
  - id: "7701234567"
    tier: paid
    telegram_chat_id: "-100200300"
    supplies:
      - preorder_id: "12345"
        warehouse: "Коледино"
        booking:
          mode: specific_dates
          dates: ["10 декабря", "11 декабря"]
          coefficient: free
          priority: by_lower_coeff
      - preorder_id: "67890"
        active: false
        booking:
          mode: any_date
          coefficient: "5"
`)

	accounts, err := LoadSupplies(path)
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	a := accounts[0]
	assert.Equal(t, "7701234567", a.ID)
	assert.Equal(t, booking.TierPaid, a.Tier)
	assert.Equal(t, "-100200300", a.ChatID)
	require.Len(t, a.Supplies, 2)

	first := a.Supplies[0]
	assert.Equal(t, booking.ModeSpecificDates, first.Settings.Mode)
	assert.Equal(t, []string{"10 декабря", "11 декабря"}, first.Settings.TargetDates)
	assert.True(t, first.Settings.Coefficient.Free)
	assert.Equal(t, booking.PriorityLowerCoefficient, first.Settings.Priority)
	assert.True(t, first.Status.Active, "active defaults to true")

	second := a.Supplies[1]
	assert.False(t, second.Status.Active)
	assert.Equal(t, 5, second.Settings.Coefficient.Max)
	assert.Equal(t, booking.PriorityCalendarOrder, second.Settings.Priority)
}

func TestLoadSuppliesRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"no accounts":         `accounts: []`,
		"missing id":          "accounts:\n  - tier: free",
		"missing preorder id": "accounts:\n  - id: x\n    supplies:\n      - booking: {mode: any_date, coefficient: any}",
		"bad mode":            "accounts:\n  - id: x\n    supplies:\n      - preorder_id: \"1\"\n        booking: {mode: eventually, coefficient: any}",
		"dates required":      "accounts:\n  - id: x\n    supplies:\n      - preorder_id: \"1\"\n        booking: {mode: specific_dates, coefficient: any}",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadSupplies(writeFile(t, content))
			assert.Error(t, err)
		})
	}
}

func TestLoadSuppliesMissingFile(t *testing.T) {
	_, err := LoadSupplies(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
