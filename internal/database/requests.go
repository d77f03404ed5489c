package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

const requestColumns = `id, requester_name, requester_email, due_date, ado_id, user_story, notes, created_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request
	err := row.Scan(&r.ID, &r.RequesterName, &r.RequesterEmail, &r.DueDate,
		&r.AdoID, &r.UserStory, &r.Notes, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRequest inserts a request. Blank strings are stored as NULL.
func (s *Store) CreateRequest(ctx context.Context, in NewRequest) (*Request, error) {
	r, err := scanRequest(s.pool.QueryRow(ctx, `
		INSERT INTO requests (requester_name, requester_email, due_date, ado_id, user_story, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+requestColumns,
		blankToNil(in.RequesterName), blankToNil(in.RequesterEmail), in.DueDate,
		blankToNil(in.AdoID), blankToNil(in.UserStory), blankToNil(in.Notes),
	))
	if err != nil {
		return nil, persistenceError("create request", err)
	}
	return r, nil
}

// GetRequest returns a request with its submissions, newest first
func (s *Store) GetRequest(ctx context.Context, id int64) (*Request, error) {
	r, err := scanRequest(s.pool.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM requests WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("request %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, persistenceError("get request", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+submissionColumns+` FROM submissions
		WHERE request_id = $1
		ORDER BY created_at DESC, id DESC
	`, id)
	if err != nil {
		return nil, persistenceError("get request", err)
	}
	subs, err := collectSubmissions(rows)
	if err != nil {
		return nil, persistenceError("get request", err)
	}
	if err := s.attachProducts(ctx, subs, "", "", true); err != nil {
		return nil, persistenceError("get request", err)
	}
	r.Submissions = subs
	return r, nil
}

// ListRequests returns the newest requests, optionally filtered by a
// case-insensitive match on requester, story, notes or tracking id
func (s *Store) ListRequests(ctx context.Context, q string, limit int) ([]Request, error) {
	if limit <= 0 {
		limit = 50
	}
	q = strings.TrimSpace(q)

	rows, err := s.pool.Query(ctx, `
		SELECT `+requestColumns+` FROM requests
		WHERE $1 = '' OR requester_name ILIKE $2 OR requester_email ILIKE $2
		   OR user_story ILIKE $2 OR notes ILIKE $2 OR ado_id ILIKE $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, q, likePattern(q), limit)
	if err != nil {
		return nil, persistenceError("list requests", err)
	}
	defer rows.Close()

	out := []Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, persistenceError("list requests", err)
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("list requests", err)
	}
	return out, nil
}
