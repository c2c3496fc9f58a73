// storage/sql_store.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chhz0/dispatchr/types"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite" // 纯Go SQLite驱动
)

// SQL 方言
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

func (d Dialect) driver() (string, error) {
	switch d {
	case DialectSQLite:
		return "sqlite", nil
	case DialectPostgres:
		return "pgx", nil // pgx/v5/stdlib 以 "pgx" 注册
	case DialectMySQL:
		return "mysql", nil
	default:
		return "", fmt.Errorf("unsupported sql dialect %q", d)
	}
}

func (d Dialect) schema() []string {
	switch d {
	case DialectMySQL:
		return []string{`
		CREATE TABLE IF NOT EXISTS orders (
			id VARCHAR(64) PRIMARY KEY,
			customer_type VARCHAR(64) NOT NULL,
			channel VARCHAR(64) NOT NULL,
			base_price DOUBLE NOT NULL,
			final_price DOUBLE NOT NULL,
			status VARCHAR(32) NOT NULL,
			created_at BIGINT NOT NULL,
			INDEX idx_orders_created (created_at)
		)`}
	case DialectPostgres:
		return []string{`
		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			customer_type TEXT NOT NULL,
			channel TEXT NOT NULL,
			base_price DOUBLE PRECISION NOT NULL,
			final_price DOUBLE PRECISION NOT NULL,
			status TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
			`CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at)`,
		}
	default:
		return []string{`
		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			customer_type TEXT NOT NULL,
			channel TEXT NOT NULL,
			base_price REAL NOT NULL,
			final_price REAL NOT NULL,
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
			`CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at)`,
		}
	}
}

// upsert 同一订单 ID 再次保存时覆盖原记录
func (d Dialect) upsert() string {
	cols := []string{"customer_type", "channel", "base_price", "final_price", "status", "created_at"}
	set := make([]string, len(cols))
	for i, c := range cols {
		if d == DialectMySQL {
			set[i] = c + " = VALUES(" + c + ")"
		} else {
			set[i] = c + " = excluded." + c
		}
	}
	if d == DialectMySQL {
		return "ON DUPLICATE KEY UPDATE " + strings.Join(set, ", ")
	}
	return "ON CONFLICT (id) DO UPDATE SET " + strings.Join(set, ", ")
}

// rebind 把 ? 占位符改写为方言格式
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type SQLStorage struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStorage 打开数据库并建表；sqlite 的 dsn 是文件路径
func NewSQLStorage(dialect Dialect, dsn string) (*SQLStorage, error) {
	driver, err := dialect.driver()
	if err != nil {
		return nil, err
	}
	if dialect == DialectSQLite && !strings.Contains(dsn, "?") {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	// 创建表结构
	for _, stmt := range dialect.schema() {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate orders: %w", err)
		}
	}

	return &SQLStorage{db: db, dialect: dialect}, nil
}

func NewSQLiteStorage(path string) (*SQLStorage, error) {
	return NewSQLStorage(DialectSQLite, path)
}

func (s *SQLStorage) SaveOrder(ctx context.Context, rec *types.OrderRecord) error {
	if rec.ID == "" {
		rec.ID = generateID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO orders
		(id, customer_type, channel, base_price, final_price, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) `+s.dialect.upsert()),
		rec.ID, string(rec.CustomerType), string(rec.Channel), rec.BasePrice,
		rec.FinalPrice, string(rec.Status), rec.CreatedAt.UnixNano(),
	)
	return err
}

func (s *SQLStorage) GetOrder(ctx context.Context, id string) (*types.OrderRecord, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(
		`SELECT id, customer_type, channel, base_price, final_price, status, created_at
		FROM orders WHERE id = ?`), id)

	rec, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	return rec, err
}

func (s *SQLStorage) ListOrders(ctx context.Context, limit int) ([]*types.OrderRecord, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(
		`SELECT id, customer_type, channel, base_price, final_price, status, created_at
		FROM orders
		ORDER BY created_at ASC
		LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*types.OrderRecord
	for rows.Next() {
		rec, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, rec)
	}
	return orders, rows.Err()
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*types.OrderRecord, error) {
	var (
		rec                           types.OrderRecord
		customerType, channel, status string
		createdAt                     int64
	)
	err := row.Scan(&rec.ID, &customerType, &channel, &rec.BasePrice, &rec.FinalPrice, &status, &createdAt)
	if err != nil {
		return nil, err
	}
	rec.CustomerType = types.CustomerType(customerType)
	rec.Channel = types.Channel(channel)
	rec.Status = types.OrderStatus(status)
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return &rec, nil
}
