package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrNightTaken = errors.New("night already booked")
)

// Database wraps a gorm handle. Inside WithApartmentLock and Transaction the
// handle is bound to the open transaction, so the same methods work in both
// places.
type Database struct {
	db     *gorm.DB
	driver string
}

func NewDatabase(driver, dsn string, logger *logrus.Logger) (*Database, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		if err := ensureSQLiteDir(dsn); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(withSQLitePragmas(dsn))
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(logger),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, errors.Wrap(err, "database.Open")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "database.Open.DB")
	}
	if driver == DriverSQLite {
		// one writer connection: sqlite serializes writers anyway, and this
		// keeps in-memory databases alive on a single connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}

	return &Database{db: db, driver: driver}, nil
}

// NewTestDB opens an isolated, migrated in-memory sqlite database.
func NewTestDB() (*Database, error) {
	dsn := fmt.Sprintf("file:test-%s?mode=memory&cache=shared", uuid.NewString())
	d, err := NewDatabase(DriverSQLite, dsn, nil)
	if err != nil {
		return nil, err
	}
	if err := d.Migrate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Database) GetDB() *gorm.DB {
	return d.db
}

func (d *Database) Driver() string {
	return d.driver
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Transaction runs fn in a transaction bound to a scoped Database.
func (d *Database) Transaction(ctx context.Context, fn func(tx *Database) error) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Database{db: tx, driver: d.driver})
	}, d.txOptions()...)
}

// WithApartmentLock runs fn in a transaction that holds the write lock on one
// apartment row. Concurrent callers for the same apartment are serialized;
// callers for different apartments only contend on sqlite, where the
// database has a single writer. Returns ErrNotFound for unknown apartments.
func (d *Database) WithApartmentLock(ctx context.Context, apartmentID uint, fn func(tx *Database) error) error {
	return d.Transaction(ctx, func(tx *Database) error {
		// A no-op write takes the row lock on postgres and promotes the
		// sqlite transaction to a write transaction before anything is read.
		res := tx.db.Exec("UPDATE apartments SET updated_at = updated_at WHERE id = ?", apartmentID)
		if res.Error != nil {
			return errors.Wrap(res.Error, "database.WithApartmentLock")
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return fn(tx)
	})
}

func (d *Database) txOptions() []*sql.TxOptions {
	if d.driver == DriverPostgres {
		return []*sql.TxOptions{{Isolation: sql.LevelSerializable}}
	}
	return nil
}

// IsRetryable reports whether err is a transient storage failure: sqlite
// busy/locked, or a postgres serialization failure or deadlock.
func IsRetryable(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func newGormLogger(logger *logrus.Logger) gormlogger.Interface {
	if logger == nil {
		return gormlogger.Discard
	}
	return gormlogger.New(logger, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

func withSQLitePragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on&_busy_timeout=5000"
}

func ensureSQLiteDir(dsn string) error {
	if strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, ":memory:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}
