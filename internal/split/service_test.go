package split_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solamate/fundpool/internal/keys"
	"github.com/solamate/fundpool/internal/memstore"
	"github.com/solamate/fundpool/internal/split"
)

func testIdentity(b byte) keys.Identity {
	var id keys.Identity
	id[0] = b
	return id
}

func newFixture(t *testing.T) (*split.Service, time.Time) {
	t.Helper()
	ms := memstore.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := split.NewService(ms.Splits(), nil, split.WithNow(func() time.Time { return now }))
	return svc, now
}

func validRequest() *split.CreateSplitRequest {
	return &split.CreateSplitRequest{
		Title:       "Dinner",
		TotalAmount: 100,
		MemberCount: 3,
		MetadataRef: "ipfs://QmSplit",
	}
}

// createSplit builds a three member split and returns it with its members.
func createSplit(t *testing.T, svc *split.Service, creator keys.Identity) (*split.GroupSplit, []*split.SplitMember) {
	t.Helper()

	gs, err := svc.Create(context.Background(), creator, validRequest())
	require.NoError(t, err)

	var members []*split.SplitMember
	for i := byte(2); i <= 4; i++ {
		member, err := svc.AddMember(context.Background(), creator, gs.Address, &split.AddMemberRequest{
			Member: testIdentity(i).String(),
		})
		require.NoError(t, err)
		members = append(members, member)
	}
	return gs, members
}

func TestCreateValidatesInput(t *testing.T) {
	svc, _ := newFixture(t)
	creator := testIdentity(1)

	tests := []struct {
		name    string
		mutate  func(*split.CreateSplitRequest)
		wantErr error
	}{
		{"empty title", func(r *split.CreateSplitRequest) { r.Title = "" }, split.ErrInvalidTitle},
		{"title too long", func(r *split.CreateSplitRequest) { r.Title = strings.Repeat("x", 65) }, split.ErrInvalidTitle},
		{"zero amount", func(r *split.CreateSplitRequest) { r.TotalAmount = 0 }, split.ErrInvalidAmount},
		{"zero members", func(r *split.CreateSplitRequest) { r.MemberCount = 0 }, split.ErrInvalidMemberCount},
		{"too many members", func(r *split.CreateSplitRequest) { r.MemberCount = 21 }, split.ErrInvalidMemberCount},
		{"empty metadata", func(r *split.CreateSplitRequest) { r.MetadataRef = "" }, split.ErrInvalidMetadata},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			_, err := svc.Create(context.Background(), creator, req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// 100 over 3 members is 33 each; the leftover unit is dropped, not
// redistributed.
func TestCreateFloorsPerPersonShare(t *testing.T) {
	svc, now := newFixture(t)
	creator := testIdentity(1)

	gs, err := svc.Create(context.Background(), creator, validRequest())
	require.NoError(t, err)

	assert.Equal(t, int64(33), gs.AmountPerPerson)
	assert.Equal(t, split.StatusActive, gs.Status)
	assert.Equal(t, 0, gs.SettledCount)
	assert.Equal(t, split.DeriveSplitAddress(creator, now), gs.Address)
}

func TestCreateRejectsOccupiedAddress(t *testing.T) {
	svc, _ := newFixture(t)
	creator := testIdentity(1)

	_, err := svc.Create(context.Background(), creator, validRequest())
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), creator, validRequest())
	assert.ErrorIs(t, err, split.ErrDuplicateSplit)
}

func TestAddMemberIsCreatorOnly(t *testing.T) {
	svc, _ := newFixture(t)
	creator := testIdentity(1)

	gs, err := svc.Create(context.Background(), creator, validRequest())
	require.NoError(t, err)

	_, err = svc.AddMember(context.Background(), testIdentity(2), gs.Address, &split.AddMemberRequest{
		Member: testIdentity(3).String(),
	})
	assert.ErrorIs(t, err, split.ErrNotAuthorized)
}

func TestAddMemberOwesFixedShare(t *testing.T) {
	svc, _ := newFixture(t)
	creator := testIdentity(1)

	gs, err := svc.Create(context.Background(), creator, validRequest())
	require.NoError(t, err)

	member, err := svc.AddMember(context.Background(), creator, gs.Address, &split.AddMemberRequest{
		Member: testIdentity(2).String(),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(33), member.AmountOwed)
	assert.False(t, member.Paid)
	assert.Equal(t, split.DeriveMemberAddress(gs.Address, testIdentity(2)), member.Address)
}

func TestAddMemberOncePerIdentity(t *testing.T) {
	svc, _ := newFixture(t)
	creator := testIdentity(1)

	gs, err := svc.Create(context.Background(), creator, validRequest())
	require.NoError(t, err)

	req := &split.AddMemberRequest{Member: testIdentity(2).String()}
	_, err = svc.AddMember(context.Background(), creator, gs.Address, req)
	require.NoError(t, err)

	_, err = svc.AddMember(context.Background(), creator, gs.Address, req)
	assert.ErrorIs(t, err, split.ErrDuplicateMember)
}

func TestAddMemberRequiresActiveSplit(t *testing.T) {
	svc, _ := newFixture(t)
	creator := testIdentity(1)

	gs, err := svc.Create(context.Background(), creator, validRequest())
	require.NoError(t, err)

	_, err = svc.Close(context.Background(), creator, gs.Address)
	require.NoError(t, err)

	_, err = svc.AddMember(context.Background(), creator, gs.Address, &split.AddMemberRequest{
		Member: testIdentity(2).String(),
	})
	assert.ErrorIs(t, err, split.ErrSplitNotActive)
}

func TestMarkPaidAuthorizesMemberAndCreator(t *testing.T) {
	svc, _ := newFixture(t)
	creator := testIdentity(1)
	gs, members := createSplit(t, svc, creator)

	// A stranger cannot acknowledge someone else's payment
	_, _, err := svc.MarkPaid(context.Background(), testIdentity(9), gs.Address, members[0].Address)
	assert.ErrorIs(t, err, split.ErrNotAuthorized)

	// The member themselves can
	updated, member, err := svc.MarkPaid(context.Background(), testIdentity(2), gs.Address, members[0].Address)
	require.NoError(t, err)
	assert.True(t, member.Paid)
	require.NotNil(t, member.PaidAt)
	assert.Equal(t, 1, updated.SettledCount)

	// The creator can mark on a member's behalf
	updated, _, err = svc.MarkPaid(context.Background(), creator, gs.Address, members[1].Address)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.SettledCount)
	assert.Equal(t, split.StatusActive, updated.Status)
}

func TestMarkPaidIsOneShot(t *testing.T) {
	svc, _ := newFixture(t)
	creator := testIdentity(1)
	gs, members := createSplit(t, svc, creator)

	_, _, err := svc.MarkPaid(context.Background(), testIdentity(2), gs.Address, members[0].Address)
	require.NoError(t, err)

	_, _, err = svc.MarkPaid(context.Background(), testIdentity(2), gs.Address, members[0].Address)
	assert.ErrorIs(t, err, split.ErrAlreadyPaid)
}

// The split settles itself exactly when the last member pays.
func TestLastPaymentSettlesSplit(t *testing.T) {
	svc, _ := newFixture(t)
	creator := testIdentity(1)
	gs, members := createSplit(t, svc, creator)

	for i, member := range members[:2] {
		updated, _, err := svc.MarkPaid(context.Background(), creator, gs.Address, member.Address)
		require.NoError(t, err)
		assert.Equal(t, i+1, updated.SettledCount)
		assert.Equal(t, split.StatusActive, updated.Status)
	}

	updated, _, err := svc.MarkPaid(context.Background(), creator, gs.Address, members[2].Address)
	require.NoError(t, err)
	assert.Equal(t, 3, updated.SettledCount)
	assert.Equal(t, split.StatusSettled, updated.Status)

	// A settled split accepts no further payment acknowledgements
	_, _, err = svc.MarkPaid(context.Background(), creator, gs.Address, members[2].Address)
	assert.ErrorIs(t, err, split.ErrSplitNotActive)
}

// The store re-checks the split's status itself, so a payment racing a
// close still loses even when the caller saw the split as active.
func TestMarkPaidStoreRejectsClosedSplit(t *testing.T) {
	ms := memstore.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := split.NewService(ms.Splits(), nil, split.WithNow(func() time.Time { return now }))
	creator := testIdentity(1)
	gs, members := createSplit(t, svc, creator)

	_, err := svc.Close(context.Background(), creator, gs.Address)
	require.NoError(t, err)

	_, _, err = ms.Splits().MarkPaid(context.Background(), members[0].Address, gs.Address, now)
	assert.ErrorIs(t, err, split.ErrSplitNotActive)

	member, err := ms.Splits().GetMember(context.Background(), members[0].Address)
	require.NoError(t, err)
	assert.False(t, member.Paid)
}

func TestCloseIsCreatorOnly(t *testing.T) {
	svc, _ := newFixture(t)
	creator := testIdentity(1)

	gs, err := svc.Create(context.Background(), creator, validRequest())
	require.NoError(t, err)

	_, err = svc.Close(context.Background(), testIdentity(2), gs.Address)
	assert.ErrorIs(t, err, split.ErrNotAuthorized)
}

// Closing works from any state: the split holds no funds, so nothing is
// forfeited.
func TestCloseWorksFromAnyState(t *testing.T) {
	svc, _ := newFixture(t)
	creator := testIdentity(1)
	gs, members := createSplit(t, svc, creator)

	for _, member := range members {
		_, _, err := svc.MarkPaid(context.Background(), creator, gs.Address, member.Address)
		require.NoError(t, err)
	}

	settled, err := svc.Get(context.Background(), gs.Address)
	require.NoError(t, err)
	require.Equal(t, split.StatusSettled, settled.Status)

	closed, err := svc.Close(context.Background(), creator, gs.Address)
	require.NoError(t, err)
	assert.Equal(t, split.StatusClosed, closed.Status)
}

func TestListMembers(t *testing.T) {
	svc, _ := newFixture(t)
	creator := testIdentity(1)
	gs, _ := createSplit(t, svc, creator)

	members, err := svc.ListMembers(context.Background(), gs.Address)
	require.NoError(t, err)
	assert.Len(t, members, 3)
}

func TestListByCreator(t *testing.T) {
	svc, _ := newFixture(t)
	creator := testIdentity(1)
	createSplit(t, svc, creator)

	splits, err := svc.ListByCreator(context.Background(), creator)
	require.NoError(t, err)
	assert.Len(t, splits, 1)

	splits, err = svc.ListByCreator(context.Background(), testIdentity(9))
	require.NoError(t, err)
	assert.Empty(t, splits)
}
