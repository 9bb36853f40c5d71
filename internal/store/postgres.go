package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/supplybot/internal/domain/booking"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Postgres keeps accounts and supplies in a database so bookings survive
// restarts and several operators can manage the same supply list.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects, pings and migrates.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConnLifetime = 5 * time.Minute
	cfg.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	p := &Postgres{pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Close() { p.pool.Close() }

func (p *Postgres) migrate(ctx context.Context) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	if _, err := p.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)`); err != nil {
		return err
	}
	for _, f := range files {
		var applied bool
		if err := p.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, f).Scan(&applied); err != nil {
			return err
		}
		if applied {
			continue
		}
		b, err := migrationsFS.ReadFile("migrations/" + f)
		if err != nil {
			return err
		}
		if _, err := p.pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if _, err := p.pool.Exec(ctx, `INSERT INTO schema_migrations(version) VALUES ($1)`, f); err != nil {
			return err
		}
	}
	return nil
}

// CreateAccount inserts or updates an account record.
func (p *Postgres) CreateAccount(ctx context.Context, acct booking.Account) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO accounts(id, tier, telegram_chat_id) VALUES ($1,$2,$3)
ON CONFLICT (id) DO UPDATE SET tier=EXCLUDED.tier, telegram_chat_id=EXCLUDED.telegram_chat_id`,
		acct.ID, string(acct.Tier), acct.ChatID)
	return err
}

// CreateSupply inserts one supply for an existing account.
func (p *Postgres) CreateSupply(ctx context.Context, accountID string, s booking.Supply) error {
	if err := s.Settings.Validate(); err != nil {
		return err
	}
	_, err := p.pool.Exec(ctx, `
INSERT INTO supplies(account_id, preorder_id, warehouse, mode, target_dates, coefficient, priority, active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		accountID, s.PreorderID, s.Warehouse,
		string(s.Settings.Mode), joinDates(s.Settings.TargetDates),
		s.Settings.Coefficient.String(), string(s.Settings.Priority),
		s.Status.Active)
	return err
}

const supplyColumns = `preorder_id, warehouse, mode, target_dates, coefficient, priority, active, booked, reservation_id, attempts_count`

func (p *Postgres) Accounts(ctx context.Context) ([]booking.Account, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, tier, telegram_chat_id FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.Account
	for rows.Next() {
		var a booking.Account
		var tier string
		if err := rows.Scan(&a.ID, &tier, &a.ChatID); err != nil {
			return nil, err
		}
		if a.Tier, err = booking.ParseTier(tier); err != nil {
			return nil, fmt.Errorf("account %s: %w", a.ID, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		supplies, err := p.supplies(ctx, out[i].ID, false)
		if err != nil {
			return nil, err
		}
		out[i].Supplies = supplies
	}
	return out, nil
}

func (p *Postgres) ActiveSupplies(ctx context.Context, accountID string) ([]booking.Supply, error) {
	return p.supplies(ctx, accountID, true)
}

func (p *Postgres) supplies(ctx context.Context, accountID string, activeOnly bool) ([]booking.Supply, error) {
	q := `SELECT ` + supplyColumns + ` FROM supplies WHERE account_id=$1 ORDER BY id`
	if activeOnly {
		q = `SELECT ` + supplyColumns + ` FROM supplies WHERE account_id=$1 AND active AND NOT booked ORDER BY id`
	}
	rows, err := p.pool.Query(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.Supply
	for rows.Next() {
		s, err := scanSupply(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanSupply(row pgx.Row) (booking.Supply, error) {
	var s booking.Supply
	var mode, dates, coeff, prio string
	var reservationID *string
	if err := row.Scan(&s.PreorderID, &s.Warehouse, &mode, &dates, &coeff, &prio,
		&s.Status.Active, &s.Status.Booked, &reservationID, &s.Status.Attempts); err != nil {
		return booking.Supply{}, err
	}
	var err error
	if s.Settings.Mode, err = booking.ParseMode(mode); err != nil {
		return booking.Supply{}, err
	}
	if s.Settings.Coefficient, err = booking.ParseCoefficientTarget(coeff); err != nil {
		return booking.Supply{}, err
	}
	if s.Settings.Priority, err = booking.ParsePriority(prio); err != nil {
		return booking.Supply{}, err
	}
	s.Settings.TargetDates = parseDates(dates)
	if reservationID != nil {
		s.Status.ReservationID = *reservationID
	}
	return s, nil
}

func (p *Postgres) RecordAttempt(ctx context.Context, accountID, preorderID string) error {
	return p.exec1(ctx, `
UPDATE supplies SET attempts_count = attempts_count + 1, updated_at = now()
WHERE account_id=$1 AND preorder_id=$2`, accountID, preorderID)
}

func (p *Postgres) MarkBooked(ctx context.Context, accountID, preorderID, reservationID string) error {
	if reservationID == "" {
		return fmt.Errorf("empty reservation id for supply %s", preorderID)
	}
	return p.exec1(ctx, `
UPDATE supplies SET booked = TRUE, reservation_id = $3, updated_at = now()
WHERE account_id=$1 AND preorder_id=$2`, accountID, preorderID, reservationID)
}

func (p *Postgres) Deactivate(ctx context.Context, accountID, preorderID string) error {
	return p.exec1(ctx, `
UPDATE supplies SET active = FALSE, updated_at = now()
WHERE account_id=$1 AND preorder_id=$2`, accountID, preorderID)
}

func (p *Postgres) DeactivateAll(ctx context.Context, accountID string) error {
	_, err := p.pool.Exec(ctx, `
UPDATE supplies SET active = FALSE, updated_at = now() WHERE account_id=$1`, accountID)
	return err
}

func (p *Postgres) exec1(ctx context.Context, sql string, args ...any) error {
	tag, err := p.pool.Exec(ctx, sql, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Target dates are stored as a comma-separated list; labels are opaque
// calendar strings, never parsed as times.
func joinDates(dates []string) string {
	var cleaned []string
	for _, d := range dates {
		d = strings.TrimSpace(d)
		if d != "" {
			cleaned = append(cleaned, d)
		}
	}
	return strings.Join(cleaned, ",")
}

func parseDates(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
