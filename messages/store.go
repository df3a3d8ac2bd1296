package messages

import (
	"context"
	"fmt"

	"treehole/db"
)

// Store owns the messages table. Like counter changes must be single
// statements so concurrent requests never lose an update.
type Store interface {
	List(ctx context.Context) ([]Message, error)
	Create(ctx context.Context, content, time string) (*Message, error)
	// Delete returns ErrNotFound when no row matched.
	Delete(ctx context.Context, id int64) error
	// IncrementLikes and DecrementLikes return the counter after the update,
	// or ErrNotFound. Decrement stops at zero.
	IncrementLikes(ctx context.Context, id int64) (int, error)
	DecrementLikes(ctx context.Context, id int64) (int, error)
	Stats(ctx context.Context) (Stats, error)
}

// NewStore picks the implementation matching the pool's database type.
func NewStore(pool *db.DBPool) (Store, error) {
	switch pool.Type {
	case db.TypeSQLite:
		return &SQLiteStore{pool: pool}, nil
	case db.TypePostgres:
		return &PostgresStore{pool: pool.PgxPool}, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", pool.Type)
	}
}
