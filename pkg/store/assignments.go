package store

import (
	"context"
	"fmt"
)

// Assignment links a polling booth to the team member covering it.
type Assignment struct {
	Booth      string `json:"booth"`
	Member     string `json:"member"`
	AssignedAt int64  `json:"assignedAt"`
}

// Assign sets (or replaces) the member covering booth.
func (s *Store) Assign(ctx context.Context, booth, member string) error {
	if booth == "" || member == "" {
		return fmt.Errorf("assign: booth and member are required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO booth_assignments (booth, member, assigned_at) VALUES (?, ?, ?)
		ON CONFLICT(booth) DO UPDATE SET member = excluded.member, assigned_at = excluded.assigned_at`,
		booth, member, s.now().Unix())
	if err != nil {
		return fmt.Errorf("assign %s: %w", booth, err)
	}
	return nil
}

// Unassign removes the assignment for booth.
func (s *Store) Unassign(ctx context.Context, booth string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM booth_assignments WHERE booth = ?`, booth)
	if err != nil {
		return fmt.Errorf("unassign %s: %w", booth, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("unassign %s: %w", booth, ErrNotFound)
	}
	return nil
}

// Assignments returns every assignment ordered by booth.
func (s *Store) Assignments(ctx context.Context) ([]Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT booth, member, assigned_at FROM booth_assignments ORDER BY booth`)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.Booth, &a.Member, &a.AssignedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
