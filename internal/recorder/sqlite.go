package recorder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"YieldFarm/internal/model"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var migrations = &migrate.MemoryMigrationSource{
	Migrations: []*migrate.Migration{
		{
			Id: "0001_history",
			Up: []string{
				`CREATE TABLE IF NOT EXISTS stake_events (
					id           INTEGER PRIMARY KEY AUTOINCREMENT,
					timestamp    INTEGER NOT NULL,
					kind         TEXT NOT NULL,
					user_address TEXT NOT NULL,
					asset        TEXT NOT NULL,
					amount       TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_stake_user ON stake_events(user_address, timestamp)`,

				`CREATE TABLE IF NOT EXISTS issuances (
					id           TEXT PRIMARY KEY,
					timestamp    INTEGER NOT NULL,
					mode         TEXT NOT NULL,
					reward_asset TEXT NOT NULL,
					total        TEXT NOT NULL,
					recipients   INTEGER NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_issuance_ts ON issuances(timestamp)`,

				`CREATE TABLE IF NOT EXISTS payouts (
					id           INTEGER PRIMARY KEY AUTOINCREMENT,
					issuance_id  TEXT NOT NULL REFERENCES issuances(id),
					user_address TEXT NOT NULL,
					value        TEXT NOT NULL,
					reward       TEXT NOT NULL
				)`,
				`CREATE INDEX IF NOT EXISTS idx_payout_user ON payouts(user_address)`,

				`CREATE TABLE IF NOT EXISTS credit_applications (
					id              TEXT PRIMARY KEY,
					timestamp       INTEGER NOT NULL,
					applicant       TEXT NOT NULL,
					amount          TEXT NOT NULL,
					term_periods    INTEGER NOT NULL,
					rate_per_period INTEGER NOT NULL,
					label           TEXT
				)`,

				`CREATE TABLE IF NOT EXISTS config_events (
					id        INTEGER PRIMARY KEY AUTOINCREMENT,
					timestamp INTEGER NOT NULL,
					action    TEXT NOT NULL,
					caller    TEXT,
					target    TEXT,
					value     TEXT
				)`,
			},
			Down: []string{
				`DROP TABLE config_events`,
				`DROP TABLE credit_applications`,
				`DROP TABLE payouts`,
				`DROP TABLE issuances`,
				`DROP TABLE stake_events`,
			},
		},
	},
}

// SQLiteRecorder persists reporting history to a SQLite database.
type SQLiteRecorder struct {
	db *sqlx.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets report readers run while the daemon writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	n, err := migrate.Exec(db.DB, "sqlite3", migrations, migrate.Up)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	zap.S().Infow("sqlite recorder opened", "path", dbPath, "migrations", n)
	return &SQLiteRecorder{db: db}, nil
}

func (r *SQLiteRecorder) RecordStake(evt *model.StakeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO stake_events
		(timestamp, kind, user_address, asset, amount)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), string(evt.Kind), evt.User.Hex(), evt.Asset.Hex(), evt.Amount.String(),
	)
	return err
}

func (r *SQLiteRecorder) RecordIssuance(rep *model.IssuanceReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO issuances
		(id, timestamp, mode, reward_asset, total, recipients)
		VALUES (?,?,?,?,?,?)`,
		rep.ID.String(), rep.At.Unix(), string(rep.Mode), rep.RewardAsset.Hex(), rep.Total.String(), rep.Recipients(),
	); err != nil {
		return fmt.Errorf("insert issuance: %w", err)
	}
	for _, p := range rep.Payouts {
		if _, err := tx.Exec(`INSERT INTO payouts
			(issuance_id, user_address, value, reward)
			VALUES (?,?,?,?)`,
			rep.ID.String(), p.User.Hex(), p.Value.String(), p.Reward.String(),
		); err != nil {
			return fmt.Errorf("insert payout: %w", err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordCredit(app *model.CreditApplication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO credit_applications
		(id, timestamp, applicant, amount, term_periods, rate_per_period, label)
		VALUES (?,?,?,?,?,?,?)`,
		app.ID.String(), app.Timestamp.Unix(), app.Applicant.Hex(), app.Amount.String(),
		app.TermPeriods, app.RatePerPeriod, app.Label,
	)
	return err
}

func (r *SQLiteRecorder) RecordConfig(evt *ConfigEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO config_events
		(timestamp, action, caller, target, value)
		VALUES (?,?,?,?,?)`,
		time.Now().Unix(), evt.Action, evt.Caller, evt.Target, evt.Value,
	)
	return err
}

// RecentIssuances returns the latest runs, newest first.
func (r *SQLiteRecorder) RecentIssuances(ctx context.Context, limit int) ([]IssuanceRow, error) {
	var rows []IssuanceRow
	err := r.db.SelectContext(ctx, &rows, `SELECT id, timestamp, mode, reward_asset, total, recipients
		FROM issuances ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	return rows, err
}

// PayoutHistory returns user's latest payouts, newest first.
func (r *SQLiteRecorder) PayoutHistory(ctx context.Context, user string, limit int) ([]PayoutRow, error) {
	var rows []PayoutRow
	err := r.db.SelectContext(ctx, &rows, `SELECT p.issuance_id, i.timestamp, p.user_address, p.value, p.reward
		FROM payouts p JOIN issuances i ON i.id = p.issuance_id
		WHERE lower(p.user_address) = ? ORDER BY i.timestamp DESC, p.id DESC LIMIT ?`,
		strings.ToLower(user), limit)
	return rows, err
}

func (r *SQLiteRecorder) Close() error {
	zap.S().Info("closing sqlite recorder")
	return r.db.Close()
}
