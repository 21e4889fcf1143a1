package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQL dialects accepted by OpenSQL.
const (
	DialectSQLite = "sqlite3"
	DialectMySQL  = "mysql"
)

// SQLStore implements Store on SQLite or MySQL.
type SQLStore struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
	logger  *zap.Logger
}

var _ Store = (*SQLStore)(nil)

// OpenSQL opens the database, verifies the connection and creates the
// tables if they do not exist.
func OpenSQL(ctx context.Context, dialect, dsn string, logger *zap.Logger) (*SQLStore, error) {
	if dialect != DialectSQLite && dialect != DialectMySQL {
		return nil, fmt.Errorf("unsupported SQL dialect %q", dialect)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		// Writes are serialized by SQLite anyway.
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", dialect, err)
	}

	s := &SQLStore{db: db, dialect: dialect, now: time.Now, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("Connected to SQL database", zap.String("dialect", dialect))
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	autoID := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.dialect == DialectMySQL {
		autoID = "BIGINT AUTO_INCREMENT PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS capture_policies (
			bot_id VARCHAR(191) PRIMARY KEY,
			mode VARCHAR(16) NOT NULL,
			excluded_ids TEXT NOT NULL,
			forward_to_alternate BOOLEAN NOT NULL DEFAULT FALSE,
			alternate_destination VARCHAR(191) NOT NULL DEFAULT '',
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS business_connections (
			connection_id VARCHAR(191) PRIMARY KEY,
			owner_id BIGINT NOT NULL,
			owner_username VARCHAR(64) NOT NULL DEFAULT '',
			owner_chat_id BIGINT NOT NULL,
			enabled BOOLEAN NOT NULL,
			first_seen BIGINT NOT NULL,
			last_seen BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_actions (
			id ` + autoID + `,
			user_id BIGINT NOT NULL,
			action VARCHAR(64) NOT NULL,
			details TEXT,
			created_at BIGINT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate %s schema: %w", s.dialect, err)
		}
	}
	return nil
}

// upsert renders an INSERT that updates updateCols on a key conflict.
func (s *SQLStore) upsert(table, key string, insertCols, updateCols []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(insertCols)), ", ")
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ", table, strings.Join(insertCols, ", "), placeholders)

	sets := make([]string, len(updateCols))
	for i, c := range updateCols {
		if s.dialect == DialectMySQL {
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", c, c)
		} else {
			sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
		}
	}
	if s.dialect == DialectMySQL {
		return q + "ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")
	}
	return q + fmt.Sprintf("ON CONFLICT(%s) DO UPDATE SET ", key) + strings.Join(sets, ", ")
}

// Close closes the database.
func (s *SQLStore) Close(context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close %s database: %w", s.dialect, err)
	}
	return nil
}
