package repositories

import (
	"context"

	"github.com/pse-app/pse-sub001/internal/core/domain"
)

// MembershipWriter seeds the state owned by the group/user subsystem.
// The ledger only reads this state; the writer exists for bootstrap and tests.
type MembershipWriter interface {
	CreateUser(ctx context.Context, user domain.User) error
	CreateGroup(ctx context.Context, group domain.Group) error

	// AddMember fails with ErrNotFound if the user or group does not exist.
	AddMember(ctx context.Context, membership domain.Membership) error

	// RemoveMember deletes a membership. Historical balance changes are kept.
	RemoveMember(ctx context.Context, membership domain.Membership) error
}
