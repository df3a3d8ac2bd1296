package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"runtime"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/mattn/go-sqlite3"
)

const (
	TypeSQLite   = "sqlite3"
	TypePostgres = "postgres"
)

type DatabaseConfig struct {
	Type     string
	Database string // file path for sqlite3, db name for postgres
	Host     string
	Port     int
	User     string
	Password string
	SSLMode  string
}

// DBPool holds either the sqlite read/write pair or a pgx pool, never both.
type DBPool struct {
	Type    string
	ReadDB  *sql.DB
	WriteDB *sql.DB
	PgxPool *pgxpool.Pool
	Path    string
}

type RequestDB struct {
	*sql.Tx
	conn *sql.DB
}

const (
	busyTimeout = "5000"      // 5 seconds
	cacheSize   = "-20000"    // 20MB
	mmapSize    = "268435456" // 256MB
	journalMode = "WAL"
	synchronous = "NORMAL"
	tempStore   = "MEMORY"
	foreignKeys = "true"
)

// InitDB opens the configured database and brings its schema up to date.
func InitDB(ctx context.Context, config DatabaseConfig) (*DBPool, error) {
	switch config.Type {
	case TypeSQLite, "":
		return initSQLite(ctx, config.Database)
	case TypePostgres:
		return initPostgres(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}
}

func initSQLite(ctx context.Context, database string) (*DBPool, error) {
	writeDB, err := openConnection(database, false)
	if err != nil {
		return nil, fmt.Errorf("write pool init failed: %w", err)
	}

	// the read pool opens the file read-only, so the schema has to exist first
	if err := runSQLiteMigrations(writeDB); err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	if err := ensureLikesColumn(ctx, writeDB); err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("likes column upgrade failed: %w", err)
	}

	readDB, err := openConnection(database, true)
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("read pool init failed: %w", err)
	}

	return &DBPool{
		Type:    TypeSQLite,
		ReadDB:  readDB,
		WriteDB: writeDB,
		Path:    database,
	}, nil
}

func initPostgres(ctx context.Context, config DatabaseConfig) (*DBPool, error) {
	connString := PostgresURL(config)

	if err := runPostgresMigrations(connString); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres config: %w", err)
	}
	poolConfig.MaxConns = int32(max(4, runtime.NumCPU()))
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connection ping failed: %w", err)
	}

	return &DBPool{
		Type:    TypePostgres,
		PgxPool: pool,
	}, nil
}

// PostgresURL renders config as a postgres:// connection string.
func PostgresURL(config DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   config.Host + ":" + strconv.Itoa(config.Port),
		Path:   "/" + config.Database,
	}
	if config.User != "" {
		u.User = url.UserPassword(config.User, config.Password)
	}
	q := url.Values{}
	if config.SSLMode != "" {
		q.Set("sslmode", config.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func openConnection(database string, readonly bool) (*sql.DB, error) {
	params := make(url.Values)
	params.Add("_busy_timeout", busyTimeout)
	params.Add("_synchronous", synchronous)
	params.Add("_cache_size", cacheSize)
	params.Add("_foreign_keys", foreignKeys)
	params.Add("_temp_store", tempStore)

	if readonly {
		params.Add("mode", "ro")
	} else {
		params.Add("_journal_mode", journalMode)
		params.Add("mode", "rwc")
		params.Add("_txlock", "immediate")
	}

	connStr := fmt.Sprintf("file:%s?%s", database, params.Encode())
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, err
	}

	if readonly {
		db.SetMaxOpenConns(max(2, runtime.NumCPU()))
		db.SetMaxIdleConns(2)
	} else {
		// one writer: sqlite serializes writes anyway, this keeps them off the busy handler
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(fmt.Sprintf("PRAGMA mmap_size=%s;", mmapSize)); err != nil {
		db.Close()
		return nil, fmt.Errorf("mmap_size pragma failed: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connection ping failed: %w", err)
	}

	return db, nil
}

func (pool *DBPool) GetReadTx(ctx context.Context) (*RequestDB, error) {
	tx, err := pool.ReadDB.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return nil, err
	}
	return &RequestDB{Tx: tx, conn: pool.ReadDB}, nil
}

func (pool *DBPool) GetWriteTx(ctx context.Context) (*RequestDB, error) {
	tx, err := pool.WriteDB.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
	if err != nil {
		return nil, err
	}
	return &RequestDB{Tx: tx, conn: pool.WriteDB}, nil
}

func (rdb *RequestDB) Commit() error {
	return rdb.Tx.Commit()
}

func (rdb *RequestDB) Rollback() error {
	return rdb.Tx.Rollback()
}

// OpenConnections sums open connections across whichever pools are in use.
func (pool *DBPool) OpenConnections() int {
	switch pool.Type {
	case TypePostgres:
		return int(pool.PgxPool.Stat().TotalConns())
	default:
		return pool.ReadDB.Stats().OpenConnections + pool.WriteDB.Stats().OpenConnections
	}
}

func (pool *DBPool) Close() error {
	if pool == nil {
		return nil
	}
	if pool.PgxPool != nil {
		pool.PgxPool.Close()
	}
	var firstErr error
	if pool.ReadDB != nil {
		if err := pool.ReadDB.Close(); err != nil {
			firstErr = err
		}
	}
	if pool.WriteDB != nil {
		if err := pool.WriteDB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
