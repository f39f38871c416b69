package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pse-app/pse-sub001/internal/apperrors"
	"github.com/pse-app/pse-sub001/internal/core/domain"
	portsrepo "github.com/pse-app/pse-sub001/internal/core/ports/repositories"
	"github.com/pse-app/pse-sub001/internal/utils/mapping"
)

// PgxMembershipRepository seeds users, groups and memberships.
type PgxMembershipRepository struct {
	BaseRepository
}

func newPgxMembershipRepository(pool *pgxpool.Pool) portsrepo.MembershipWriter {
	return &PgxMembershipRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.MembershipWriter = (*PgxMembershipRepository)(nil)

func (r *PgxMembershipRepository) CreateUser(ctx context.Context, user domain.User) error {
	m := mapping.ToModelUser(user)
	query := `
		INSERT INTO users (user_id, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO NOTHING;
	`
	tag, err := r.Pool.Exec(ctx, query, m.UserID, m.Name, m.CreatedAt)
	if err != nil {
		return storageError("failed to insert user "+m.UserID, err)
	}
	return conflictIfUnchanged(tag, "user "+m.UserID+" already exists")
}

func (r *PgxMembershipRepository) CreateGroup(ctx context.Context, group domain.Group) error {
	m := mapping.ToModelGroup(group)
	query := `
		INSERT INTO groups (group_id, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id) DO NOTHING;
	`
	tag, err := r.Pool.Exec(ctx, query, m.GroupID, m.Name, m.CreatedAt)
	if err != nil {
		return storageError("failed to insert group "+m.GroupID, err)
	}
	return conflictIfUnchanged(tag, "group "+m.GroupID+" already exists")
}

// AddMember is idempotent for an existing membership.
func (r *PgxMembershipRepository) AddMember(ctx context.Context, membership domain.Membership) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	queries := pgxLedgerQueries{q: tx, lockRefs: true}
	users, err := queries.ExistingUsers(ctx, []string{membership.UserID})
	if err != nil {
		return err
	}
	if _, ok := users[membership.UserID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrUserNotFound, membership.UserID)
	}
	groups, err := queries.ExistingGroups(ctx, []string{membership.GroupID})
	if err != nil {
		return err
	}
	if _, ok := groups[membership.GroupID]; !ok {
		return fmt.Errorf("%w: %s", domain.ErrGroupNotFound, membership.GroupID)
	}

	query := `
		INSERT INTO memberships (user_id, group_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, group_id) DO NOTHING;
	`
	if _, err := tx.Exec(ctx, query, membership.UserID, membership.GroupID); err != nil {
		return storageError("failed to insert membership", err)
	}
	return r.Commit(ctx, tx)
}

func (r *PgxMembershipRepository) RemoveMember(ctx context.Context, membership domain.Membership) error {
	tag, err := r.Pool.Exec(ctx,
		"DELETE FROM memberships WHERE user_id = $1 AND group_id = $2;",
		membership.UserID, membership.GroupID,
	)
	if err != nil {
		return storageError("failed to delete membership", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("membership")
	}
	return nil
}

func conflictIfUnchanged(tag pgconn.CommandTag, msg string) error {
	if tag.RowsAffected() == 0 {
		return apperrors.NewConflictError(msg)
	}
	return nil
}
