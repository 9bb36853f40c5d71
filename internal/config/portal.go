package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Portal carries everything the engine treats as opaque portal knowledge:
// URLs, DOM selector tables, popup dismiss patterns and timing constants.
// Defaults target the Wildberries seller portal and can be overridden from
// a yaml file so selector churn does not require a rebuild.
type Portal struct {
	URLs      URLs      `yaml:"urls"`
	Selectors Selectors `yaml:"selectors"`
	Popups    []Popup   `yaml:"popups"`
	Timeouts  Timeouts  `yaml:"timeouts"`
	FreeLabel string    `yaml:"free_label"`
}

type URLs struct {
	Seller       string `yaml:"seller"`
	Supply       string `yaml:"supply"`
	SupplierCard string `yaml:"supplier_card"`
}

type Selectors struct {
	Auth struct {
		Authorized string `yaml:"authorized"`
		Identity   string `yaml:"identity"`
	} `yaml:"auth"`
	Supply struct {
		OrderTitle string `yaml:"order_title"`
		PlanButton string `yaml:"plan_button"`
	} `yaml:"supply"`
	Calendar struct {
		Cell          string `yaml:"cell"`
		DateContainer string `yaml:"date_container"`
		DateText      string `yaml:"date_text"`
		Coefficient   string `yaml:"coefficient"`
		DisabledClass string `yaml:"disabled_class"`
		SelectButton  string `yaml:"select_button"`
		BookButton    string `yaml:"book_button"`
		CloseButton   string `yaml:"close_button"`
	} `yaml:"calendar"`
	Booking struct {
		ReservationTitle string `yaml:"reservation_title"`
		StatusBadge      string `yaml:"status_badge"`
	} `yaml:"booking"`
}

// Popup is one known interstitial: a name for logging plus the locator of
// its dismiss control. Order in the slice is the order patterns are tried.
type Popup struct {
	Name    string `yaml:"name"`
	Dismiss string `yaml:"dismiss"`
}

type Timeouts struct {
	Navigate     time.Duration `yaml:"navigate"`
	AuthNavigate time.Duration `yaml:"auth_navigate"`
	WaitSelector time.Duration `yaml:"wait_selector"`

	AuthWait         time.Duration `yaml:"auth_wait"`
	AuthPollInterval time.Duration `yaml:"auth_poll_interval"`
	MaxAuthAttempts  int           `yaml:"max_auth_attempts"`

	MaxOpenAttempts      int           `yaml:"max_open_attempts"`
	VerifyWait           time.Duration `yaml:"verify_wait"`
	VerifyInterval       time.Duration `yaml:"verify_interval"`
	MaxVerifyAttempts    int           `yaml:"max_verify_attempts"`
	MaxCalendarAttempts  int           `yaml:"max_calendar_attempts"`
	Animation            time.Duration `yaml:"animation"`
	CalendarPollInterval time.Duration `yaml:"calendar_poll_interval"`
	BookWait             time.Duration `yaml:"book_wait"`

	PopupProbe    time.Duration `yaml:"popup_probe"`
	PopupInterval time.Duration `yaml:"popup_interval"`

	IdentityInterval time.Duration `yaml:"identity_interval"`
	CookieTTL        time.Duration `yaml:"cookie_ttl"`
}

// UnmarshalYAML accepts durations in time.ParseDuration form ("30s",
// "5m"). Fields absent from the document keep whatever the target already
// holds, so a partial overlay only overrides what it names.
func (t *Timeouts) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Navigate     string `yaml:"navigate"`
		AuthNavigate string `yaml:"auth_navigate"`
		WaitSelector string `yaml:"wait_selector"`

		AuthWait         string `yaml:"auth_wait"`
		AuthPollInterval string `yaml:"auth_poll_interval"`
		MaxAuthAttempts  *int   `yaml:"max_auth_attempts"`

		MaxOpenAttempts      *int   `yaml:"max_open_attempts"`
		VerifyWait           string `yaml:"verify_wait"`
		VerifyInterval       string `yaml:"verify_interval"`
		MaxVerifyAttempts    *int   `yaml:"max_verify_attempts"`
		MaxCalendarAttempts  *int   `yaml:"max_calendar_attempts"`
		Animation            string `yaml:"animation"`
		CalendarPollInterval string `yaml:"calendar_poll_interval"`
		BookWait             string `yaml:"book_wait"`

		PopupProbe    string `yaml:"popup_probe"`
		PopupInterval string `yaml:"popup_interval"`

		IdentityInterval string `yaml:"identity_interval"`
		CookieTTL        string `yaml:"cookie_ttl"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	durations := []struct {
		dst *time.Duration
		src string
	}{
		{&t.Navigate, raw.Navigate},
		{&t.AuthNavigate, raw.AuthNavigate},
		{&t.WaitSelector, raw.WaitSelector},
		{&t.AuthWait, raw.AuthWait},
		{&t.AuthPollInterval, raw.AuthPollInterval},
		{&t.VerifyWait, raw.VerifyWait},
		{&t.VerifyInterval, raw.VerifyInterval},
		{&t.Animation, raw.Animation},
		{&t.CalendarPollInterval, raw.CalendarPollInterval},
		{&t.BookWait, raw.BookWait},
		{&t.PopupProbe, raw.PopupProbe},
		{&t.PopupInterval, raw.PopupInterval},
		{&t.IdentityInterval, raw.IdentityInterval},
		{&t.CookieTTL, raw.CookieTTL},
	}
	for _, f := range durations {
		if f.src == "" {
			continue
		}
		d, err := time.ParseDuration(f.src)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", f.src, err)
		}
		*f.dst = d
	}

	if raw.MaxAuthAttempts != nil {
		t.MaxAuthAttempts = *raw.MaxAuthAttempts
	}
	if raw.MaxOpenAttempts != nil {
		t.MaxOpenAttempts = *raw.MaxOpenAttempts
	}
	if raw.MaxVerifyAttempts != nil {
		t.MaxVerifyAttempts = *raw.MaxVerifyAttempts
	}
	if raw.MaxCalendarAttempts != nil {
		t.MaxCalendarAttempts = *raw.MaxCalendarAttempts
	}
	return nil
}

// DefaultPortal returns the built-in Wildberries tables.
func DefaultPortal() Portal {
	p := Portal{
		URLs: URLs{
			Seller:       "https://seller.wildberries.ru/",
			Supply:       "https://seller.wildberries.ru/supplies-management/all-supplies/supply-detail/uploaded-goods",
			SupplierCard: "https://seller.wildberries.ru/supplier-settings/supplier-card",
		},
		Popups: []Popup{
			{Name: "other_modal", Dismiss: `div[id="Portal-modal"] button:has(span:text("Понятно"))`},
			{Name: "cookies", Dismiss: `div[id="Portal-warning-cookies-modal"] button:has(span:text("Принимаю"))`},
			{Name: "quiz", Dismiss: `#Portal-quiz-modal button:has(span:text("Отменить"))`},
			{Name: "tutorial_step", Dismiss: `div[class^="Tooltip-hint-view__close-button"][data-action="close"][aria-label="Close"]`},
		},
		Timeouts: Timeouts{
			Navigate:     30 * time.Second,
			AuthNavigate: 60 * time.Second,
			WaitSelector: 30 * time.Second,

			AuthWait:         30 * time.Second,
			AuthPollInterval: 3 * time.Second,
			MaxAuthAttempts:  5,

			MaxOpenAttempts:      2,
			VerifyWait:           15 * time.Second,
			VerifyInterval:       5 * time.Second,
			MaxVerifyAttempts:    2,
			MaxCalendarAttempts:  3,
			Animation:            500 * time.Millisecond,
			CalendarPollInterval: 5 * time.Second,
			BookWait:             60 * time.Second,

			PopupProbe:    time.Second,
			PopupInterval: 5 * time.Second,

			IdentityInterval: 5 * time.Minute,
			CookieTTL:        time.Hour,
		},
		FreeLabel: "Бесплатно",
	}

	p.Selectors.Auth.Authorized = "#Portal-header"
	p.Selectors.Auth.Identity = `div[class^="Operating-account-form__wrapper"] input[id="inn"]`

	p.Selectors.Supply.OrderTitle = `div[class^="Supply-detail-options__title-main"] span[data-name="Text"]:has-text("Заказ №")`
	p.Selectors.Supply.PlanButton = `button:has(span:text("Запланировать поставку"))`

	p.Selectors.Calendar.Cell = `td[class^="Calendar-cell"]`
	p.Selectors.Calendar.DateContainer = `div[class^="Calendar-cell__date-container"]`
	p.Selectors.Calendar.DateText = "span"
	p.Selectors.Calendar.Coefficient = `div[class^='Calendar-cell__amount-cost'] div[class^='Coefficient-table-cell'] div[class^='Coefficient-block__coefficient-text'] span[class*='Text--body-s']`
	p.Selectors.Calendar.DisabledClass = "is-disabled"
	p.Selectors.Calendar.SelectButton = `div[class^="Custom-popup"] button:has-text("Выбрать")`
	p.Selectors.Calendar.BookButton = `div[class^="Calendar-plan-buttons"] button:has(span:text("Запланировать"))`
	p.Selectors.Calendar.CloseButton = `#Portal-modal div[class^="Modal__close-button"] button`

	p.Selectors.Booking.ReservationTitle = `div[class^="Supply-detail-options__title-main"] span[data-name="Text"]:has-text("Поставка №")`
	p.Selectors.Booking.StatusBadge = `div[class^="Supply-detail-options__badge"] span[data-name="Badge"]:has-text("Запланировано")`

	return p
}

// LoadPortal returns the defaults, overlaid with the yaml file when path is
// non-empty. Unset fields in the file keep their default values.
func LoadPortal(path string) (Portal, error) {
	p := DefaultPortal()
	if path == "" {
		return p, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Portal{}, fmt.Errorf("read portal config: %w", err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return Portal{}, fmt.Errorf("parse portal config: %w", err)
	}
	return p, nil
}
