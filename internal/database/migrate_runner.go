package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"socialhub/internal/middleware"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// migrationLockKey serializes schema changes when several replicas boot at once.
const migrationLockKey int64 = 0x50c1a1

// ErrMigrationsNeedPostgres is returned when SQL migrations run against another driver.
var ErrMigrationsNeedPostgres = errors.New("sql migrations are postgres dialect; use DB_SCHEMA_MODE=auto for other drivers")

// MigrationStore tracks which embedded migrations a database has applied.
type MigrationStore interface {
	GetAppliedMigrations(ctx context.Context) ([]int, error)
	// Apply runs m.UpScript and records it in one transaction. It reports
	// false when another process recorded the version first.
	Apply(ctx context.Context, m Migration) (bool, error)
	// Revert runs m.DownScript and drops its record in one transaction.
	Revert(ctx context.Context, m Migration) error
}

type migrationStore struct {
	db *gorm.DB
}

// NewMigrationStore creates a new MigrationStore instance.
func NewMigrationStore(db *gorm.DB) MigrationStore {
	return &migrationStore{db: db}
}

func (s *migrationStore) GetAppliedMigrations(ctx context.Context) ([]int, error) {
	var versions []int
	if err := s.db.WithContext(ctx).
		Raw("SELECT version FROM migration_logs ORDER BY version ASC").
		Scan(&versions).Error; err != nil {
		if isMissingTableError(err) {
			return []int{}, nil
		}
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	if versions == nil {
		versions = []int{}
	}
	return versions, nil
}

func isMissingTableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42P01"
	}
	return strings.Contains(err.Error(), "relation") && strings.Contains(err.Error(), "does not exist")
}

func (s *migrationStore) Apply(ctx context.Context, m Migration) (bool, error) {
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", migrationLockKey).Error; err != nil {
			return fmt.Errorf("lock migrations: %w", err)
		}
		var existing int64
		if err := tx.Raw("SELECT COUNT(*) FROM migration_logs WHERE version = ?", m.Version).
			Scan(&existing).Error; err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if existing > 0 {
			return nil
		}
		if err := tx.Exec(m.UpScript).Error; err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		if err := tx.Exec("INSERT INTO migration_logs (version, name) VALUES (?, ?)", m.Version, m.Name).Error; err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}
		applied = true
		return nil
	})
	return applied, err
}

func (s *migrationStore) Revert(ctx context.Context, m Migration) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", migrationLockKey).Error; err != nil {
			return fmt.Errorf("lock migrations: %w", err)
		}
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("failed to run rollback SQL for migration %d (%s): %w", m.Version, m.Name, err)
		}
		if err := tx.Exec("DELETE FROM migration_logs WHERE version = ?", m.Version).Error; err != nil {
			return fmt.Errorf("failed to remove migration record %d: %w", m.Version, err)
		}
		return nil
	})
}

const ensureMigrationLogTableSQL = `
CREATE TABLE IF NOT EXISTS migration_logs (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

func requirePostgres(db *gorm.DB) error {
	if db.Dialector == nil || db.Dialector.Name() != DriverPostgres {
		return ErrMigrationsNeedPostgres
	}
	return nil
}

// RunMigrations applies every pending embedded migration. Each script and
// its log row commit together, so a failed script leaves no record behind.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := requirePostgres(db); err != nil {
		return err
	}
	if err := db.WithContext(ctx).Exec(ensureMigrationLogTableSQL).Error; err != nil {
		return fmt.Errorf("failed to ensure migration logs table: %w", err)
	}

	store := NewMigrationStore(db)
	applied, err := store.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	if err := validateAppliedVersions(applied, migrations); err != nil {
		return err
	}

	appliedSet := make(map[int]bool, len(applied))
	for _, v := range applied {
		appliedSet[v] = true
	}

	for _, m := range migrations {
		if appliedSet[m.Version] {
			continue
		}
		ran, err := store.Apply(ctx, m)
		if err != nil {
			return err
		}
		if ran {
			middleware.Logger.Info("Migration applied", slog.Int("version", m.Version), slog.String("name", m.Name))
		} else {
			middleware.Logger.Info("Migration applied by another instance", slog.Int("version", m.Version))
		}
	}
	return nil
}

func validateAppliedVersions(applied []int, registered []Migration) error {
	known := make(map[int]struct{}, len(registered))
	for _, m := range registered {
		known[m.Version] = struct{}{}
	}

	var unknown []string
	for _, version := range applied {
		if _, ok := known[version]; !ok {
			unknown = append(unknown, fmt.Sprintf("%06d", version))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf(
		"migration_logs contains versions this build does not ship: %s (deploy a newer build or roll back with an older one)",
		strings.Join(unknown, ", "),
	)
}

// RollbackMigration reverts one applied migration.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	if err := requirePostgres(db); err != nil {
		return err
	}
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	store := NewMigrationStore(db)
	applied, err := store.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, v := range applied {
		if v == version {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	if err := store.Revert(ctx, *m); err != nil {
		return err
	}
	middleware.Logger.Info("Migration rolled back", slog.Int("version", version), slog.String("name", m.Name))
	return nil
}
