package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"treehole/db"
)

type SQLiteStore struct {
	pool *db.DBPool
}

func (s *SQLiteStore) List(ctx context.Context) ([]Message, error) {
	readTx, err := s.pool.GetReadTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer readTx.Rollback()

	query := `SELECT id, content, time, COALESCE(likes, 0)
              FROM messages ORDER BY id DESC`

	rows, err := readTx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.Content, &msg.Time, &msg.Likes); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, readTx.Commit()
}

func (s *SQLiteStore) Create(ctx context.Context, content, time string) (*Message, error) {
	writeTx, err := s.pool.GetWriteTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer writeTx.Rollback()

	query := `INSERT INTO messages (content, time, likes) VALUES (?, ?, 0)`

	result, err := writeTx.ExecContext(ctx, query, content, time)
	if err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get message ID: %w", err)
	}

	if err = writeTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &Message{ID: id, Content: content, Time: time}, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	writeTx, err := s.pool.GetWriteTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer writeTx.Rollback()

	result, err := writeTx.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return writeTx.Commit()
}

func (s *SQLiteStore) IncrementLikes(ctx context.Context, id int64) (int, error) {
	return s.adjustLikes(ctx, id, `UPDATE messages SET likes = likes + 1 WHERE id = ? RETURNING likes`)
}

func (s *SQLiteStore) DecrementLikes(ctx context.Context, id int64) (int, error) {
	return s.adjustLikes(ctx, id, `UPDATE messages
              SET likes = CASE WHEN likes > 0 THEN likes - 1 ELSE 0 END
              WHERE id = ? RETURNING likes`)
}

func (s *SQLiteStore) adjustLikes(ctx context.Context, id int64, query string) (int, error) {
	writeTx, err := s.pool.GetWriteTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer writeTx.Rollback()

	var likes int
	if err := writeTx.QueryRowContext(ctx, query, id).Scan(&likes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to update likes: %w", err)
	}

	if err = writeTx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return likes, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	readTx, err := s.pool.GetReadTx(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer readTx.Rollback()

	var stats Stats
	err = readTx.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(likes), 0) FROM messages`,
	).Scan(&stats.Messages, &stats.Likes)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to count messages: %w", err)
	}

	var pageCount, pageSize int64
	if err := readTx.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return Stats{}, fmt.Errorf("failed to read page count: %w", err)
	}
	if err := readTx.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return Stats{}, fmt.Errorf("failed to read page size: %w", err)
	}
	stats.SizeBytes = pageCount * pageSize

	return stats, readTx.Commit()
}
