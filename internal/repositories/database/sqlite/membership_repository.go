package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pse-app/pse-sub001/internal/apperrors"
	"github.com/pse-app/pse-sub001/internal/core/domain"
	portsrepo "github.com/pse-app/pse-sub001/internal/core/ports/repositories"
	"github.com/pse-app/pse-sub001/internal/utils/mapping"
)

// MembershipRepository seeds users, groups and memberships.
type MembershipRepository struct {
	BaseRepository
}

func newMembershipRepository(db *sql.DB) portsrepo.MembershipWriter {
	return &MembershipRepository{BaseRepository: BaseRepository{DB: db}}
}

var _ portsrepo.MembershipWriter = (*MembershipRepository)(nil)

func (r *MembershipRepository) CreateUser(ctx context.Context, user domain.User) error {
	m := mapping.ToModelUser(user)
	createdAt, err := formatTimestamp(m.CreatedAt)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (user_id, name, created_at) VALUES (?, ?, ?) ON CONFLICT (user_id) DO NOTHING",
		m.UserID, m.Name, createdAt,
	)
	if err != nil {
		return storageError("failed to insert user "+m.UserID, err)
	}
	return conflictIfUnchanged(res, "user "+m.UserID+" already exists")
}

func (r *MembershipRepository) CreateGroup(ctx context.Context, group domain.Group) error {
	m := mapping.ToModelGroup(group)
	createdAt, err := formatTimestamp(m.CreatedAt)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO groups (group_id, name, created_at) VALUES (?, ?, ?) ON CONFLICT (group_id) DO NOTHING",
		m.GroupID, m.Name, createdAt,
	)
	if err != nil {
		return storageError("failed to insert group "+m.GroupID, err)
	}
	return conflictIfUnchanged(res, "group "+m.GroupID+" already exists")
}

// AddMember is idempotent for an existing membership.
func (r *MembershipRepository) AddMember(ctx context.Context, membership domain.Membership) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(tx)

	queries := ledgerQueries{q: tx}
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

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO memberships (user_id, group_id) VALUES (?, ?) ON CONFLICT (user_id, group_id) DO NOTHING",
		membership.UserID, membership.GroupID,
	); err != nil {
		return storageError("failed to insert membership", err)
	}
	return r.Commit(tx)
}

func (r *MembershipRepository) RemoveMember(ctx context.Context, membership domain.Membership) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM memberships WHERE user_id = ? AND group_id = ?",
		membership.UserID, membership.GroupID,
	)
	if err != nil {
		return storageError("failed to delete membership", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageError("failed to read affected rows", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError("membership")
	}
	return nil
}

func conflictIfUnchanged(res sql.Result, msg string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return storageError("failed to read affected rows", err)
	}
	if affected == 0 {
		return apperrors.NewConflictError(msg)
	}
	return nil
}
