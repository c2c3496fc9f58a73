// storage/open.go
package storage

import (
	"fmt"
	"strings"
)

// Options 选择存储后端
type Options struct {
	Backend       string // memory | bolt | sqlite | postgres | mysql | redis
	Path          string // bolt / sqlite 文件路径
	DSN           string // postgres / mysql 连接串
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func Open(opts Options) (OrderStore, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", "memory":
		return NewMemoryStorage(), nil
	case "bolt", "boltdb":
		return NewBoltStorage(opts.Path)
	case "sqlite":
		return NewSQLiteStorage(opts.Path)
	case "postgres", "postgresql":
		return NewSQLStorage(DialectPostgres, opts.DSN)
	case "mysql":
		return NewSQLStorage(DialectMySQL, opts.DSN)
	case "redis":
		return NewRedisStorage(opts.RedisAddr, opts.RedisPassword, opts.RedisDB), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}
