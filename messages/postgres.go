package messages

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func (s *PostgresStore) List(ctx context.Context) ([]Message, error) {
	query := `SELECT id, content, time, likes FROM messages ORDER BY id DESC`

	rows, err := s.pool.Query(ctx, query)
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

	return messages, nil
}

func (s *PostgresStore) Create(ctx context.Context, content, time string) (*Message, error) {
	query := `INSERT INTO messages (content, time, likes) VALUES ($1, $2, 0) RETURNING id`

	var id int64
	if err := s.pool.QueryRow(ctx, query, content, time).Scan(&id); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	return &Message{ID: id, Content: content, Time: time}, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) IncrementLikes(ctx context.Context, id int64) (int, error) {
	return s.adjustLikes(ctx, id, `UPDATE messages SET likes = likes + 1 WHERE id = $1 RETURNING likes`)
}

func (s *PostgresStore) DecrementLikes(ctx context.Context, id int64) (int, error) {
	return s.adjustLikes(ctx, id, `UPDATE messages
              SET likes = CASE WHEN likes > 0 THEN likes - 1 ELSE 0 END
              WHERE id = $1 RETURNING likes`)
}

func (s *PostgresStore) adjustLikes(ctx context.Context, id int64, query string) (int, error) {
	var likes int
	if err := s.pool.QueryRow(ctx, query, id).Scan(&likes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to update likes: %w", err)
	}
	return likes, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(likes), 0), pg_database_size(current_database()) FROM messages`,
	).Scan(&stats.Messages, &stats.Likes, &stats.SizeBytes)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to collect stats: %w", err)
	}
	return stats, nil
}
