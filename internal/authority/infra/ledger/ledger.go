package ledger

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"Vikings/internal/mission/entity/domain"
	"Vikings/internal/shared/serverconfig"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const defaultSQLitePath = "data/authority.sqlite"

// Store 已结算的攻击请求，按 request_id 去重。
type Store struct {
	dialect Dialect
	db      *sql.DB
}

// Open 按配置打开数据库并执行未应用的迁移。
func Open(ctx context.Context, cfg serverconfig.LedgerConfig, l *zap.Logger) (*Store, error) {
	if l == nil {
		l = zap.NewNop()
	}
	raw := strings.TrimSpace(strings.ToLower(cfg.Dialect))
	if raw == "" {
		raw = string(DialectSQLite)
	}
	dialect := Dialect(raw)

	var driver, dsn string
	switch dialect {
	case DialectSQLite:
		driver = "sqlite"
		dsn = strings.TrimSpace(cfg.DSN)
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	case DialectPostgres:
		driver = "pgx"
		dsn = strings.TrimSpace(cfg.DSN)
		if dsn == "" {
			return nil, errors.New("ledger dialect postgres requires dsn")
		}
	default:
		return nil, fmt.Errorf("unsupported ledger dialect %q", raw)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s ledger: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s ledger: %w", dialect, err)
	}
	s := &Store{dialect: dialect, db: db}
	if err := s.migrate(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	l.Info("open request ledger success", zap.String("dialect", string(dialect)))
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) bind(pos int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", pos)
	}
	return "?"
}

func (s *Store) migrate(ctx context.Context) error {
	create := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied := map[string]bool{}
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("read schema_migrations: %w", err)
	}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("scan schema migration: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate schema migrations: %w", err)
	}
	rows.Close()

	files, err := fs.Glob(migrationFS, fmt.Sprintf("migrations/%s/*.sql", s.dialect))
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(files)
	for _, file := range files {
		base := filepath.Base(file)
		if applied[base] {
			continue
		}
		body, err := migrationFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration tx %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		q := fmt.Sprintf("INSERT INTO schema_migrations (version, applied_at) VALUES (%s, %s)", s.bind(1), s.bind(2))
		if _, err := tx.ExecContext(ctx, q, base, time.Now().UTC()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

func (s *Store) Lookup(ctx context.Context, requestID string) (domain.AuthorityResult, bool, error) {
	q := fmt.Sprintf("SELECT response FROM authority_requests WHERE request_id = %s", s.bind(1))
	var raw string
	err := s.db.QueryRowContext(ctx, q, requestID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AuthorityResult{}, false, nil
	}
	if err != nil {
		return domain.AuthorityResult{}, false, fmt.Errorf("lookup request %s: %w", requestID, err)
	}
	var res domain.AuthorityResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return domain.AuthorityResult{}, false, fmt.Errorf("decode request %s: %w", requestID, err)
	}
	return res, true, nil
}

// Record 首次写入生效，重复 request_id 保持原值。
func (s *Store) Record(ctx context.Context, requestID, attacker string, res domain.AuthorityResult) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode request %s: %w", requestID, err)
	}
	q := fmt.Sprintf(
		"INSERT INTO authority_requests (request_id, attacker, created_at, response) VALUES (%s, %s, %s, %s) ON CONFLICT (request_id) DO NOTHING",
		s.bind(1), s.bind(2), s.bind(3), s.bind(4),
	)
	if _, err := s.db.ExecContext(ctx, q, requestID, attacker, time.Now().UTC(), string(raw)); err != nil {
		return fmt.Errorf("record request %s: %w", requestID, err)
	}
	return nil
}

// Purge 删除早于 before 的记录，返回删除条数。
func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	q := fmt.Sprintf("DELETE FROM authority_requests WHERE created_at < %s", s.bind(1))
	r, err := s.db.ExecContext(ctx, q, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge requests: %w", err)
	}
	return r.RowsAffected()
}
