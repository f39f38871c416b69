package domain

import "time"

// User is the ledger's view of a user owned by the identity subsystem.
type User struct {
	UserID    string    `json:"userID"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Group is the ledger's view of an expense group.
type Group struct {
	GroupID   string    `json:"groupID"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Membership is the fact that a user currently belongs to a group.
type Membership struct {
	UserID  string `json:"userID"`
	GroupID string `json:"groupID"`
}

// MembershipKey identifies one (user, group) balance.
type MembershipKey struct {
	UserID  string
	GroupID string
}

// Key returns the balance key of the membership.
func (m Membership) Key() MembershipKey {
	return MembershipKey{UserID: m.UserID, GroupID: m.GroupID}
}

// Balances maps each membership to its net balance. Non-memberships are never present.
type Balances map[MembershipKey]Amount

// Get returns the balance of a pair and whether the pair is a membership.
func (b Balances) Get(userID, groupID string) (Amount, bool) {
	a, ok := b[MembershipKey{UserID: userID, GroupID: groupID}]
	return a, ok
}
