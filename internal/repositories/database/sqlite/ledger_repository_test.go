package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pse-app/pse-sub001/internal/apperrors"
	"github.com/pse-app/pse-sub001/internal/core/domain"
	portsrepo "github.com/pse-app/pse-sub001/internal/core/ports/repositories"
	portssvc "github.com/pse-app/pse-sub001/internal/core/ports/services"
	"github.com/pse-app/pse-sub001/internal/core/services"
	"github.com/pse-app/pse-sub001/internal/repositories/database/sqlite"
)

// Seeded state:
//
//	groupA: alice, bob, dave
//	groupB: alice, carol
type LedgerStoreTestSuite struct {
	suite.Suite
	ctx     context.Context
	db      *sql.DB
	repos   portsrepo.RepositoryProvider
	service portssvc.LedgerSvcFacade
	base    time.Time
}

const (
	alice  = "alice"
	bob    = "bob"
	carol  = "carol"
	dave   = "dave"
	groupA = "groupA"
	groupB = "groupB"
)

func (s *LedgerStoreTestSuite) SetupTest() {
	s.ctx = context.Background()
	db, err := sqlite.Open(s.ctx, filepath.Join(s.T().TempDir(), "ledger.db"))
	s.Require().NoError(err)
	s.db = db
	s.repos = sqlite.NewRepositoryProvider(db)
	s.service = services.NewLedgerService(s.repos.LedgerRepo, services.WithCurrency(domain.DefaultCurrency))
	s.base = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

	for _, id := range []string{alice, bob, carol, dave} {
		s.Require().NoError(s.repos.MembershipRepo.CreateUser(s.ctx, domain.User{UserID: id, Name: id, CreatedAt: s.base}))
	}
	for _, id := range []string{groupA, groupB} {
		s.Require().NoError(s.repos.MembershipRepo.CreateGroup(s.ctx, domain.Group{GroupID: id, Name: id, CreatedAt: s.base}))
	}
	for _, m := range []domain.Membership{
		{UserID: alice, GroupID: groupA},
		{UserID: bob, GroupID: groupA},
		{UserID: dave, GroupID: groupA},
		{UserID: alice, GroupID: groupB},
		{UserID: carol, GroupID: groupB},
	} {
		s.Require().NoError(s.repos.MembershipRepo.AddMember(s.ctx, m))
	}
}

func (s *LedgerStoreTestSuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
}

func amounts(pairs ...string) map[string]domain.Amount {
	changes := make(map[string]domain.Amount, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		changes[pairs[i]] = domain.MustParseAmount(pairs[i+1])
	}
	return changes
}

func (s *LedgerStoreTestSuite) payment(group, name string, at time.Time, origin string, changes map[string]domain.Amount) domain.Transaction {
	return domain.NewPayment(group, name, nil, at, origin, changes)
}

func (s *LedgerStoreTestSuite) requireTransactionCount(group string, want int) {
	txns, err := s.service.GetTransactions(s.ctx, group)
	s.Require().NoError(err)
	s.Require().Len(txns, want)
}

func (s *LedgerStoreTestSuite) TestPostTransactions_RejectsUnbalanced() {
	err := s.service.PostTransactions(s.ctx, []domain.Transaction{
		s.payment(groupA, "ok", s.base, alice, amounts(alice, "-5", bob, "5")),
		s.payment(groupA, "unbalanced", s.base, alice, amounts(alice, "-5", bob, "4.99")),
	})

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
	s.ErrorIs(err, domain.ErrTransactionUnbalanced)
	s.requireTransactionCount(groupA, 0)
}

func (s *LedgerStoreTestSuite) TestPostTransactions_IsAtomic() {
	err := s.service.PostTransactions(s.ctx, []domain.Transaction{
		s.payment(groupA, "valid", s.base, alice, amounts(alice, "-5", bob, "5")),
		s.payment(groupA, "ghost", s.base, alice, amounts(alice, "-5", "ghost", "5")),
	})

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrNotFound)
	s.ErrorIs(err, domain.ErrUserNotFound)
	s.requireTransactionCount(groupA, 0)
}

func (s *LedgerStoreTestSuite) TestPostTransactions_ValidationOrder() {
	// Unbalanced and referencing an unknown user: the amount check runs first.
	err := s.service.PostTransactions(s.ctx, []domain.Transaction{
		s.payment(groupA, "both wrong", s.base, alice, amounts(alice, "-5", "ghost", "4")),
	})
	s.ErrorIs(err, apperrors.ErrValidation)

	// Unknown user and unknown group: users are checked before groups.
	err = s.service.PostTransactions(s.ctx, []domain.Transaction{
		s.payment("nowhere", "both missing", s.base, alice, amounts(alice, "-5", "ghost", "5")),
	})
	s.ErrorIs(err, domain.ErrUserNotFound)

	err = s.service.PostTransactions(s.ctx, []domain.Transaction{
		s.payment("nowhere", "no group", s.base, alice, amounts(alice, "-5", bob, "5")),
	})
	s.ErrorIs(err, domain.ErrGroupNotFound)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *LedgerStoreTestSuite) TestPostTransactions_RequiresMembership() {
	// carol exists but is not in groupA.
	err := s.service.PostTransactions(s.ctx, []domain.Transaction{
		s.payment(groupA, "outsider change", s.base, alice, amounts(alice, "-5", carol, "5")),
	})
	s.ErrorIs(err, domain.ErrUserNotFound)

	err = s.service.PostTransactions(s.ctx, []domain.Transaction{
		s.payment(groupA, "outsider origin", s.base, carol, amounts(alice, "-5", bob, "5")),
	})
	s.ErrorIs(err, domain.ErrUserNotFound)

	s.requireTransactionCount(groupA, 0)
}

func (s *LedgerStoreTestSuite) TestPostTransactions_KickedMemberIsRejected() {
	s.Require().NoError(s.service.PostTransactions(s.ctx, []domain.Transaction{
		s.payment(groupA, "before kick", s.base, alice, amounts(alice, "-3", bob, "3")),
	}))

	s.Require().NoError(s.repos.MembershipRepo.RemoveMember(s.ctx, domain.Membership{UserID: bob, GroupID: groupA}))

	err := s.service.PostTransactions(s.ctx, []domain.Transaction{
		s.payment(groupA, "after kick", s.base, alice, amounts(alice, "-3", bob, "3")),
	})
	s.ErrorIs(err, domain.ErrUserNotFound)

	// History stays, but the former member no longer has a balance in the group.
	s.requireTransactionCount(groupA, 1)
	balances, err := s.service.GetBalances(s.ctx, []string{alice, bob}, []string{groupA})
	s.Require().NoError(err)
	s.Len(balances, 1)
	v, ok := balances.Get(alice, groupA)
	s.True(ok)
	s.Equal("-3", v.String())
}

func (s *LedgerStoreTestSuite) TestGetBalances_Aggregates() {
	s.Require().NoError(s.service.PostTransactions(s.ctx, []domain.Transaction{
		s.payment(groupA, "T1", s.base, alice, amounts(alice, "-7", bob, "7")),
	}))
	s.Require().NoError(s.service.PostTransactions(s.ctx, []domain.Transaction{
		s.payment(groupB, "T2", s.base, carol, amounts(alice, "1.5", carol, "-1.5")),
		s.payment(groupA, "T3", s.base.Add(time.Hour), bob, amounts(alice, "2.25", bob, "-2.25")),
	}))

	balances, err := s.service.GetBalances(s.ctx, []string{alice, bob, dave}, []string{groupA, groupB})
	s.Require().NoError(err)

	expected := map[domain.MembershipKey]string{
		{UserID: alice, GroupID: groupA}: "-4.75",
		{UserID: bob, GroupID: groupA}:   "4.75",
		{UserID: dave, GroupID: groupA}:  "0",
		{UserID: alice, GroupID: groupB}: "1.5",
	}
	s.Len(balances, len(expected))
	for key, want := range expected {
		got, ok := balances[key]
		s.True(ok, "missing %v", key)
		s.Equal(want, got.String(), "balance of %v", key)
	}
}

func (s *LedgerStoreTestSuite) TestGetBalances_ExcludesNonMemberships() {
	s.Require().NoError(s.service.PostTransactions(s.ctx, []domain.Transaction{
		s.payment(groupB, "T", s.base, carol, amounts(alice, "1", carol, "-1")),
	}))

	balances, err := s.service.GetBalances(s.ctx, []string{bob, carol}, []string{groupA, groupB})
	s.Require().NoError(err)

	_, ok := balances.Get(carol, groupA)
	s.False(ok)
	_, ok = balances.Get(bob, groupB)
	s.False(ok)
	s.Len(balances, 2)
}

func (s *LedgerStoreTestSuite) TestGetBalances_UnknownReferences() {
	_, err := s.service.GetBalances(s.ctx, []string{alice, "ghost"}, []string{groupA})
	s.ErrorIs(err, apperrors.ErrNotFound)
	s.ErrorIs(err, domain.ErrUserNotFound)

	_, err = s.service.GetBalances(s.ctx, []string{alice}, []string{"nowhere"})
	s.ErrorIs(err, domain.ErrGroupNotFound)
}

func (s *LedgerStoreTestSuite) TestAmountLimits() {
	tooPrecise := s.payment(groupA, "fraction of a cent", s.base, alice, amounts(alice, "-0.001", bob, "0.001"))
	err := s.service.PostTransactions(s.ctx, []domain.Transaction{tooPrecise})
	s.ErrorIs(err, apperrors.ErrValidation)
	s.ErrorIs(err, domain.ErrAmountScale)

	huge := "10000000000000000000000000000"
	tooLarge := s.payment(groupA, "too large", s.base, alice, amounts(alice, "-"+huge, bob, huge))
	err = s.service.PostTransactions(s.ctx, []domain.Transaction{tooLarge})
	s.ErrorIs(err, apperrors.ErrValidation)
	s.ErrorIs(err, domain.ErrAmountMagnitude)

	hugeTotal := domain.NewExpense(groupA, "huge total", nil, s.base, alice, amounts(alice, "-1", bob, "1"), domain.MustParseAmount(huge))
	err = s.service.PostTransactions(s.ctx, []domain.Transaction{hugeTotal})
	s.ErrorIs(err, domain.ErrAmountMagnitude)

	exponent := s.payment(groupA, "exponent notation", s.base, alice, amounts(alice, "-1e50000000", bob, "1e50000000"))
	err = s.service.PostTransactions(s.ctx, []domain.Transaction{exponent})
	s.ErrorIs(err, domain.ErrAmountMagnitude)

	trailingZeros := s.payment(groupA, "trailing zeros", s.base, alice, amounts(alice, "-1.500", bob, "1.5000"))
	s.NoError(s.service.PostTransactions(s.ctx, []domain.Transaction{trailingZeros}))

	s.requireTransactionCount(groupA, 1)
}

func (s *LedgerStoreTestSuite) TestGetTransactions_OrderedByTimestamp() {
	s.Require().NoError(s.service.PostTransactions(s.ctx, []domain.Transaction{
		s.payment(groupA, "third", s.base.Add(3*time.Hour), alice, amounts(alice, "-1", bob, "1")),
		s.payment(groupA, "first", s.base.Add(1*time.Hour), alice, amounts(alice, "-1", bob, "1")),
	}))
	s.Require().NoError(s.service.PostTransactions(s.ctx, []domain.Transaction{
		s.payment(groupA, "second-a", s.base.Add(2*time.Hour), alice, amounts(alice, "-1", bob, "1")),
		s.payment(groupA, "second-b", s.base.Add(2*time.Hour), alice, amounts(alice, "-1", bob, "1")),
		s.payment(groupA, "zeroth", s.base, alice, amounts(alice, "-1", bob, "1")),
	}))

	txns, err := s.service.GetTransactions(s.ctx, groupA)
	s.Require().NoError(err)

	names := make([]string, len(txns))
	for i, txn := range txns {
		names[i] = txn.Name
	}
	s.Equal([]string{"zeroth", "first", "second-a", "second-b", "third"}, names)

	again, err := s.service.GetTransactions(s.ctx, groupA)
	s.Require().NoError(err)
	s.Equal(txns, again)
}

func (s *LedgerStoreTestSuite) TestGetTransactions_TimestampsAcrossCenturies() {
	future := time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)
	past := time.Date(1600, 6, 1, 12, 0, 0, 123456789, time.UTC)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("CET", 3600))

	s.Require().NoError(s.service.PostTransactions(s.ctx, []domain.Transaction{
		s.payment(groupA, "future", future, alice, amounts(alice, "-1", bob, "1")),
		s.payment(groupA, "now", now, alice, amounts(alice, "-1", bob, "1")),
		s.payment(groupA, "past", past, alice, amounts(alice, "-1", bob, "1")),
	}))

	txns, err := s.service.GetTransactions(s.ctx, groupA)
	s.Require().NoError(err)
	s.Require().Len(txns, 3)

	s.Equal("past", txns[0].Name)
	s.True(past.Equal(txns[0].Timestamp), "got %s", txns[0].Timestamp)
	s.Equal("now", txns[1].Name)
	s.True(now.Equal(txns[1].Timestamp), "got %s", txns[1].Timestamp)
	s.Equal("future", txns[2].Name)
	s.True(future.Equal(txns[2].Timestamp), "got %s", txns[2].Timestamp)

	outOfRange := s.payment(groupA, "too far", time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC), alice, amounts(alice, "-1", bob, "1"))
	err = s.service.PostTransactions(s.ctx, []domain.Transaction{outOfRange})
	s.ErrorIs(err, apperrors.ErrValidation)
	s.ErrorIs(err, domain.ErrTimestampRange)
	s.requireTransactionCount(groupA, 3)
}

func (s *LedgerStoreTestSuite) TestMembershipWriter_FarFutureCreatedAt() {
	s.NoError(s.repos.MembershipRepo.CreateUser(s.ctx, domain.User{UserID: "eve", Name: "eve", CreatedAt: time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC)}))

	err := s.repos.MembershipRepo.CreateGroup(s.ctx, domain.Group{GroupID: "groupZ", Name: "groupZ", CreatedAt: time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)})
	s.ErrorIs(err, domain.ErrTimestampRange)
}

func (s *LedgerStoreTestSuite) TestGetTransactions_UnknownGroup() {
	_, err := s.service.GetTransactions(s.ctx, "nowhere")
	s.ErrorIs(err, apperrors.ErrNotFound)
	s.ErrorIs(err, domain.ErrGroupNotFound)

	s.requireTransactionCount(groupB, 0)
}

func (s *LedgerStoreTestSuite) TestEmptyInputs() {
	s.NoError(s.service.PostTransactions(s.ctx, nil))
	s.NoError(s.service.PostTransactions(s.ctx, []domain.Transaction{}))

	balances, err := s.service.GetBalances(s.ctx, nil, []string{groupA, "nowhere"})
	s.NoError(err)
	s.Empty(balances)

	balances, err = s.service.GetBalances(s.ctx, []string{alice, "ghost"}, []string{})
	s.NoError(err)
	s.Empty(balances)
}

func (s *LedgerStoreTestSuite) TestRoundTrip() {
	comment := "paid back in cash"
	payment := domain.NewPayment(groupA, "Settle up", &comment, s.base.Add(30*time.Minute), bob,
		amounts(alice, "-12.30", bob, "12.3"))
	expense := domain.NewExpense(groupA, "Groceries", nil, s.base.Add(time.Hour), alice,
		amounts(alice, "40", bob, "-20", dave, "-20"), domain.MustParseAmount("40.00"))
	payment.TransactionID = "caller-supplied-id"

	s.Require().NoError(s.service.PostTransactions(s.ctx, []domain.Transaction{payment, expense}))

	txns, err := s.service.GetTransactions(s.ctx, groupA)
	s.Require().NoError(err)
	s.Require().Len(txns, 2)

	gotPayment, gotExpense := txns[0], txns[1]

	s.NotEmpty(gotPayment.TransactionID)
	s.NotEqual("caller-supplied-id", gotPayment.TransactionID)
	s.NotEqual(gotPayment.TransactionID, gotExpense.TransactionID)

	s.Equal(domain.Payment, gotPayment.Kind)
	s.Equal(groupA, gotPayment.GroupID)
	s.Equal("Settle up", gotPayment.Name)
	s.Require().NotNil(gotPayment.Comment)
	s.Equal(comment, *gotPayment.Comment)
	s.True(payment.Timestamp.Equal(gotPayment.Timestamp))
	s.Equal(bob, gotPayment.OriginatingUserID)
	s.Nil(gotPayment.ExpenseAmount)
	s.assertSameChanges(payment.BalanceChanges, gotPayment.BalanceChanges)

	s.Equal(domain.Expense, gotExpense.Kind)
	s.Nil(gotExpense.Comment)
	s.True(expense.Timestamp.Equal(gotExpense.Timestamp))
	total, ok := gotExpense.Total()
	s.True(ok)
	s.True(total.Equal(domain.MustParseAmount("40")))
	s.assertSameChanges(expense.BalanceChanges, gotExpense.BalanceChanges)
}

func (s *LedgerStoreTestSuite) assertSameChanges(want, got map[string]domain.Amount) {
	s.Require().Len(got, len(want))
	for userID, amount := range want {
		g, ok := got[userID]
		s.True(ok, "missing change for %s", userID)
		s.True(amount.Equal(g), "change for %s: want %s got %s", userID, amount, g)
	}
}

func (s *LedgerStoreTestSuite) TestConcurrentPostsStayBalanced() {
	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.service.PostTransactions(s.ctx, []domain.Transaction{
				s.payment(groupA, fmt.Sprintf("concurrent-%d", i), s.base, alice, amounts(alice, "-1.01", bob, "0.51", dave, "0.50")),
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	s.requireTransactionCount(groupA, workers)
	balances, err := s.service.GetBalances(s.ctx, []string{alice, bob, dave}, []string{groupA})
	s.Require().NoError(err)
	total := domain.ZeroAmount
	for _, v := range balances {
		total = total.Add(v)
	}
	s.True(total.IsZero())
	v, _ := balances.Get(alice, groupA)
	s.Equal("-8.08", v.String())
}

func (s *LedgerStoreTestSuite) TestMembershipWriter() {
	err := s.repos.MembershipRepo.CreateUser(s.ctx, domain.User{UserID: alice, Name: "again"})
	s.ErrorIs(err, apperrors.ErrConflict)

	err = s.repos.MembershipRepo.CreateGroup(s.ctx, domain.Group{GroupID: groupA, Name: "again"})
	s.ErrorIs(err, apperrors.ErrConflict)

	err = s.repos.MembershipRepo.AddMember(s.ctx, domain.Membership{UserID: "ghost", GroupID: groupA})
	s.ErrorIs(err, domain.ErrUserNotFound)

	err = s.repos.MembershipRepo.AddMember(s.ctx, domain.Membership{UserID: alice, GroupID: "nowhere"})
	s.ErrorIs(err, domain.ErrGroupNotFound)

	s.NoError(s.repos.MembershipRepo.AddMember(s.ctx, domain.Membership{UserID: alice, GroupID: groupA}))

	err = s.repos.MembershipRepo.RemoveMember(s.ctx, domain.Membership{UserID: carol, GroupID: groupA})
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func TestLedgerStore(t *testing.T) {
	suite.Run(t, new(LedgerStoreTestSuite))
}
