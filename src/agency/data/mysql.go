package data

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/stake-plus/cat-agency/src/logging"
)

const sqlitePrefix = "sqlite://"

// Open connects to the store named by dsn. A "sqlite://<path>" DSN opens an
// embedded SQLite database; anything else is treated as a MySQL DSN.
func Open(dsn string, l zerolog.Logger) (*gorm.DB, error) {
	if strings.HasPrefix(dsn, sqlitePrefix) {
		return OpenSQLite(strings.TrimPrefix(dsn, sqlitePrefix), l)
	}
	return ConnectMySQL(dsn, l)
}

// ConnectMySQL opens a gorm DB with sane defaults.
func ConnectMySQL(dsn string, l zerolog.Logger) (*gorm.DB, error) {
	dsn = ensureParam(dsn, "parseTime", "true")
	if !strings.Contains(dsn, "charset=") {
		dsn = ensureParam(dsn, "charset", "utf8mb4")
		dsn = ensureParam(dsn, "collation", "utf8mb4_unicode_ci")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logging.GormLogger(l)})
	if err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}
	return db, nil
}

// OpenSQLite opens an embedded database. SQLite has no row locks, so the pool
// is pinned to one connection and transactions serialise on it; this also keeps
// ":memory:" databases shared across the pool.
func OpenSQLite(path string, l zerolog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logging.GormLogger(l)})
	if err != nil {
		return nil, fmt.Errorf("sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func ensureParam(dsn, key, val string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + val
}
