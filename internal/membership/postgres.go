package membership

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"courier/internal/domain"
)

// Postgres reads group membership from the group_members table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres returns a membership store over an existing pool. The pool's
// lifecycle belongs to the caller.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Members returns the user IDs belonging to the group. An unknown group
// yields an empty slice, not an error.
func (p *Postgres) Members(ctx context.Context, group domain.GroupID) ([]domain.UserID, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT user_id FROM group_members WHERE group_id = $1 ORDER BY user_id`,
		group.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	defer rows.Close()

	var members []domain.UserID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		members = append(members, domain.UserID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read group members: %w", err)
	}
	return members, nil
}

// Compile-time assertion that Postgres implements domain.MembershipStore.
var _ domain.MembershipStore = (*Postgres)(nil)
