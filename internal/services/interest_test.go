package services

import (
	"context"
	"testing"
	"time"

	"matrimony-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(userIDs ...string) (*InterestService, *fakeInterestStore, *fakeNotificationSink) {
	store := newFakeInterestStore()
	sink := &fakeNotificationSink{}
	svc := NewInterestService(store, newFakeUserDirectory(userIDs...), sink)
	return svc, store, sink
}

func TestSendInterest_CreatesPending(t *testing.T) {
	svc, _, sink := newTestEngine("alice", "bob")

	interest, mutual, err := svc.SendInterest(context.Background(), "alice", "bob", "hello")
	require.NoError(t, err)
	assert.False(t, mutual)
	assert.Equal(t, models.InterestStatusPending, interest.Status)
	assert.Equal(t, "alice", interest.SenderID)
	assert.Equal(t, "bob", interest.ReceiverID)
	require.NotNil(t, interest.Message)
	assert.Equal(t, "hello", *interest.Message)

	notifs := sink.byType(NotificationTypeInterest)
	require.Len(t, notifs, 1)
	assert.Equal(t, "bob", notifs[0].UserID)
}

func TestSendInterest_SelfRejected(t *testing.T) {
	svc, _, _ := newTestEngine("alice")

	_, _, err := svc.SendInterest(context.Background(), "alice", "alice", "")
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestSendInterest_UnknownUser(t *testing.T) {
	svc, _, _ := newTestEngine("alice")

	_, _, err := svc.SendInterest(context.Background(), "alice", "ghost", "")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, _, err = svc.SendInterest(context.Background(), "ghost", "alice", "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSendInterest_Idempotent(t *testing.T) {
	svc, _, sink := newTestEngine("alice", "bob")
	ctx := context.Background()

	first, _, err := svc.SendInterest(ctx, "alice", "bob", "hi")
	require.NoError(t, err)

	second, mutual, err := svc.SendInterest(ctx, "alice", "bob", "hi again")
	require.NoError(t, err)
	assert.False(t, mutual)
	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.Message)
	assert.Equal(t, "hi", *second.Message)

	// no duplicate notification for the duplicate send
	assert.Len(t, sink.byType(NotificationTypeInterest), 1)
}

func TestSendInterest_MutualMatch(t *testing.T) {
	for _, order := range []struct {
		name          string
		first, second [2]string
	}{
		{"alice first", [2]string{"alice", "bob"}, [2]string{"bob", "alice"}},
		{"bob first", [2]string{"bob", "alice"}, [2]string{"alice", "bob"}},
	} {
		t.Run(order.name, func(t *testing.T) {
			svc, store, sink := newTestEngine("alice", "bob")
			ctx := context.Background()

			first, mutual, err := svc.SendInterest(ctx, order.first[0], order.first[1], "")
			require.NoError(t, err)
			assert.False(t, mutual)

			second, mutual, err := svc.SendInterest(ctx, order.second[0], order.second[1], "")
			require.NoError(t, err)
			assert.True(t, mutual)
			assert.Equal(t, models.InterestStatusAccepted, second.Status)

			settled, err := store.GetByID(ctx, first.ID)
			require.NoError(t, err)
			assert.Equal(t, models.InterestStatusAccepted, settled.Status)

			matches := sink.byType(NotificationTypeMatch)
			require.Len(t, matches, 2)
			recipients := []string{matches[0].UserID, matches[1].UserID}
			assert.ElementsMatch(t, []string{"alice", "bob"}, recipients)
		})
	}
}

func TestSendInterest_NoMatchAfterDecline(t *testing.T) {
	svc, _, sink := newTestEngine("alice", "bob")
	ctx := context.Background()

	interest, _, err := svc.SendInterest(ctx, "alice", "bob", "")
	require.NoError(t, err)

	_, err = svc.RespondToInterest(ctx, interest.ID, "bob", false)
	require.NoError(t, err)

	// bob's counter-interest must not resurrect the declined record
	counter, mutual, err := svc.SendInterest(ctx, "bob", "alice", "")
	require.NoError(t, err)
	assert.False(t, mutual)
	assert.Equal(t, models.InterestStatusPending, counter.Status)
	assert.Empty(t, sink.byType(NotificationTypeMatch))
}

func TestSendInterest_NotificationFailureDoesNotFail(t *testing.T) {
	store := newFakeInterestStore()
	sink := &fakeNotificationSink{failing: true}
	svc := NewInterestService(store, newFakeUserDirectory("alice", "bob"), sink)

	interest, _, err := svc.SendInterest(context.Background(), "alice", "bob", "")
	require.NoError(t, err)
	assert.Equal(t, models.InterestStatusPending, interest.Status)
}

func TestRespondToInterest_Accept(t *testing.T) {
	svc, _, sink := newTestEngine("alice", "bob")
	ctx := context.Background()

	interest, _, err := svc.SendInterest(ctx, "alice", "bob", "")
	require.NoError(t, err)

	accepted, err := svc.RespondToInterest(ctx, interest.ID, "bob", true)
	require.NoError(t, err)
	assert.Equal(t, models.InterestStatusAccepted, accepted.Status)

	notifs := sink.byType(NotificationTypeInterestAccepted)
	require.Len(t, notifs, 1)
	assert.Equal(t, "alice", notifs[0].UserID)
}

func TestRespondToInterest_OnlyReceiver(t *testing.T) {
	svc, _, _ := newTestEngine("alice", "bob", "carol")
	ctx := context.Background()

	interest, _, err := svc.SendInterest(ctx, "alice", "bob", "")
	require.NoError(t, err)

	// neither a bystander nor the sender may respond
	_, err = svc.RespondToInterest(ctx, interest.ID, "carol", true)
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = svc.RespondToInterest(ctx, interest.ID, "alice", true)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestRespondToInterest_Twice(t *testing.T) {
	svc, _, _ := newTestEngine("alice", "bob")
	ctx := context.Background()

	interest, _, err := svc.SendInterest(ctx, "alice", "bob", "")
	require.NoError(t, err)

	_, err = svc.RespondToInterest(ctx, interest.ID, "bob", true)
	require.NoError(t, err)

	_, err = svc.RespondToInterest(ctx, interest.ID, "bob", false)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestRespondToInterest_UnknownID(t *testing.T) {
	svc, _, _ := newTestEngine("alice", "bob")

	_, err := svc.RespondToInterest(context.Background(), "nope", "bob", true)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func acceptedInterest(t *testing.T, svc *InterestService) *models.Interest {
	t.Helper()
	ctx := context.Background()
	interest, _, err := svc.SendInterest(ctx, "alice", "bob", "")
	require.NoError(t, err)
	accepted, err := svc.RespondToInterest(ctx, interest.ID, "bob", true)
	require.NoError(t, err)
	return accepted
}

func TestGrantPhotoAccess_SetsExpiry(t *testing.T) {
	svc, _, sink := newTestEngine("alice", "bob")
	interest := acceptedInterest(t, svc)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	granted, err := svc.GrantPhotoAccess(context.Background(), interest.ID, "bob", models.PhotoAccessOneWeek)
	require.NoError(t, err)
	require.NotNil(t, granted.PhotoAccessGrantedAt)
	require.NotNil(t, granted.PhotoAccessExpiresAt)
	assert.Equal(t, base.Add(7*24*time.Hour), *granted.PhotoAccessExpiresAt)
	assert.False(t, granted.PhotoAccessRevoked)

	require.Len(t, sink.byType(NotificationTypePhotoGranted), 1)
}

func TestGrantPhotoAccess_Permanent(t *testing.T) {
	svc, _, _ := newTestEngine("alice", "bob")
	interest := acceptedInterest(t, svc)

	granted, err := svc.GrantPhotoAccess(context.Background(), interest.ID, "bob", models.PhotoAccessPermanent)
	require.NoError(t, err)
	assert.Nil(t, granted.PhotoAccessExpiresAt)
}

func TestGrantPhotoAccess_OnlyReceiver(t *testing.T) {
	svc, _, _ := newTestEngine("alice", "bob")
	interest := acceptedInterest(t, svc)

	_, err := svc.GrantPhotoAccess(context.Background(), interest.ID, "alice", models.PhotoAccessOneDay)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestGrantPhotoAccess_NotAccepted(t *testing.T) {
	svc, _, _ := newTestEngine("alice", "bob")
	ctx := context.Background()

	interest, _, err := svc.SendInterest(ctx, "alice", "bob", "")
	require.NoError(t, err)

	_, err = svc.GrantPhotoAccess(ctx, interest.ID, "bob", models.PhotoAccessOneDay)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	_, err = svc.RespondToInterest(ctx, interest.ID, "bob", false)
	require.NoError(t, err)

	_, err = svc.GrantPhotoAccess(ctx, interest.ID, "bob", models.PhotoAccessOneDay)
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestGrantPhotoAccess_UnknownDuration(t *testing.T) {
	svc, _, _ := newTestEngine("alice", "bob")
	interest := acceptedInterest(t, svc)

	_, err := svc.GrantPhotoAccess(context.Background(), interest.ID, "bob", "forever")
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestRevokePhotoAccess(t *testing.T) {
	svc, store, sink := newTestEngine("alice", "bob")
	interest := acceptedInterest(t, svc)
	ctx := context.Background()

	_, err := svc.GrantPhotoAccess(ctx, interest.ID, "bob", models.PhotoAccessOneWeek)
	require.NoError(t, err)

	require.NoError(t, svc.RevokePhotoAccess(ctx, interest.ID, "bob"))

	revoked, err := store.GetByID(ctx, interest.ID)
	require.NoError(t, err)
	assert.True(t, revoked.PhotoAccessRevoked)
	assert.NotNil(t, revoked.PhotoAccessRevokedAt)

	notifs := sink.byType(NotificationTypePhotoRevoked)
	require.Len(t, notifs, 1)
	assert.Equal(t, "alice", notifs[0].UserID)

	// revoking twice is rejected
	err = svc.RevokePhotoAccess(ctx, interest.ID, "bob")
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestRevokePhotoAccess_NoGrant(t *testing.T) {
	svc, _, _ := newTestEngine("alice", "bob")
	interest := acceptedInterest(t, svc)

	err := svc.RevokePhotoAccess(context.Background(), interest.ID, "bob")
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestRevokePhotoAccess_OnlyReceiver(t *testing.T) {
	svc, _, _ := newTestEngine("alice", "bob")
	interest := acceptedInterest(t, svc)
	ctx := context.Background()

	_, err := svc.GrantPhotoAccess(ctx, interest.ID, "bob", models.PhotoAccessOneWeek)
	require.NoError(t, err)

	err = svc.RevokePhotoAccess(ctx, interest.ID, "alice")
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestRegrantAfterRevoke(t *testing.T) {
	svc, _, _ := newTestEngine("alice", "bob")
	interest := acceptedInterest(t, svc)
	ctx := context.Background()

	_, err := svc.GrantPhotoAccess(ctx, interest.ID, "bob", models.PhotoAccessOneDay)
	require.NoError(t, err)
	require.NoError(t, svc.RevokePhotoAccess(ctx, interest.ID, "bob"))

	regranted, err := svc.GrantPhotoAccess(ctx, interest.ID, "bob", models.PhotoAccessOneMonth)
	require.NoError(t, err)
	assert.False(t, regranted.PhotoAccessRevoked)
	assert.Nil(t, regranted.PhotoAccessRevokedAt)
	assert.Equal(t, models.PhotoAccessOneMonth, *regranted.PhotoAccessDuration)
}

func TestUndoInterest_Pending(t *testing.T) {
	svc, store, _ := newTestEngine("alice", "bob")
	ctx := context.Background()

	_, _, err := svc.SendInterest(ctx, "alice", "bob", "")
	require.NoError(t, err)

	require.NoError(t, svc.UndoInterest(ctx, "alice", "bob"))

	_, err = store.GetByPair(ctx, "alice", "bob")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUndoInterest_Decided(t *testing.T) {
	svc, store, _ := newTestEngine("alice", "bob")
	interest := acceptedInterest(t, svc)
	ctx := context.Background()

	err := svc.UndoInterest(ctx, "alice", "bob")
	assert.ErrorIs(t, err, models.ErrInvalidState)

	// record left untouched
	kept, err := store.GetByID(ctx, interest.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InterestStatusAccepted, kept.Status)
}

func TestUndoInterest_NoRecord(t *testing.T) {
	svc, _, _ := newTestEngine("alice", "bob")

	err := svc.UndoInterest(context.Background(), "alice", "bob")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAreMatched(t *testing.T) {
	svc, _, _ := newTestEngine("alice", "bob", "carol")
	ctx := context.Background()

	matched, err := svc.AreMatched(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, matched)

	acceptedInterest(t, svc)

	// either direction sees the match
	matched, err = svc.AreMatched(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, matched)
	matched, err = svc.AreMatched(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, matched)

	matched, err = svc.AreMatched(ctx, "alice", "carol")
	require.NoError(t, err)
	assert.False(t, matched)
}

// lostInsertStore simulates losing the insert race: the identical concurrent
// send wins first, so Create stores the row but reports no insert.
type lostInsertStore struct {
	*fakeInterestStore
}

func (s *lostInsertStore) Create(ctx context.Context, in *models.Interest) (bool, error) {
	if _, err := s.fakeInterestStore.Create(ctx, in); err != nil {
		return false, err
	}
	return false, nil
}

// lostFlipStore simulates losing the mutual-flip race: the counterpart's own
// send flips both rows first, so AcceptMutual finds nothing left to do.
type lostFlipStore struct {
	*fakeInterestStore
}

func (s *lostFlipStore) AcceptMutual(ctx context.Context, firstID, secondID string, now time.Time) (bool, error) {
	if _, err := s.fakeInterestStore.AcceptMutual(ctx, firstID, secondID, now); err != nil {
		return false, err
	}
	return false, nil
}

func TestSendInterest_InsertRaceReturnsExisting(t *testing.T) {
	store := &lostInsertStore{newFakeInterestStore()}
	sink := &fakeNotificationSink{}
	svc := NewInterestService(store, newFakeUserDirectory("alice", "bob"), sink)

	interest, mutual, err := svc.SendInterest(context.Background(), "alice", "bob", "")
	require.NoError(t, err)
	assert.False(t, mutual)
	assert.Equal(t, models.InterestStatusPending, interest.Status)

	// the losing call returns the winner's row and emits no notification
	// of its own
	winner, err := store.GetByPair(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, winner.ID, interest.ID)
	assert.Empty(t, sink.byType(NotificationTypeInterest))
}

func TestSendInterest_MutualFlipRaceReturnsSettled(t *testing.T) {
	store := &lostFlipStore{newFakeInterestStore()}
	sink := &fakeNotificationSink{}
	svc := NewInterestService(store, newFakeUserDirectory("alice", "bob"), sink)
	ctx := context.Background()

	base := NewInterestService(store.fakeInterestStore, newFakeUserDirectory("alice", "bob"), &fakeNotificationSink{})
	_, _, err := base.SendInterest(ctx, "bob", "alice", "")
	require.NoError(t, err)

	// alice's send sees the pending counterpart but loses the flip to
	// the concurrent winner; she must observe the settled accepted row
	// without re-flipping or re-notifying
	interest, mutual, err := svc.SendInterest(ctx, "alice", "bob", "")
	require.NoError(t, err)
	assert.False(t, mutual)
	assert.Equal(t, models.InterestStatusAccepted, interest.Status)
	assert.Empty(t, sink.byType(NotificationTypeMatch))
}

func TestSendInterest_ConcurrentMutual(t *testing.T) {
	for i := 0; i < 100; i++ {
		svc, store, sink := newTestEngine("alice", "bob")
		ctx := context.Background()

		type result struct {
			interest *models.Interest
			mutual   bool
			err      error
		}
		results := make(chan result, 2)
		for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
			go func(senderID, receiverID string) {
				in, mutual, err := svc.SendInterest(ctx, senderID, receiverID, "")
				results <- result{in, mutual, err}
			}(pair[0], pair[1])
		}

		mutualCount := 0
		for j := 0; j < 2; j++ {
			res := <-results
			require.NoError(t, res.err)
			if res.mutual {
				mutualCount++
				assert.Equal(t, models.InterestStatusAccepted, res.interest.Status)
			}
		}

		// exactly one of the two concurrent callers observes the flip
		assert.Equal(t, 1, mutualCount)

		for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
			in, err := store.GetByPair(ctx, pair[0], pair[1])
			require.NoError(t, err)
			assert.Equal(t, models.InterestStatusAccepted, in.Status)
		}

		// one match notification per party, never more
		matches := sink.byType(NotificationTypeMatch)
		require.Len(t, matches, 2)
		assert.ElementsMatch(t, []string{"alice", "bob"},
			[]string{matches[0].UserID, matches[1].UserID})
	}
}

func TestRespondToInterest_NotifyWithoutResponderProfile(t *testing.T) {
	store := newFakeInterestStore()
	sink := &fakeNotificationSink{}
	directory := newFakeUserDirectory("alice", "bob")
	svc := NewInterestService(store, directory, sink)
	ctx := context.Background()

	interest, _, err := svc.SendInterest(ctx, "alice", "bob", "")
	require.NoError(t, err)

	// responder's profile is gone by the time the outcome is announced
	delete(directory.users, "bob")

	_, err = svc.RespondToInterest(ctx, interest.ID, "bob", true)
	require.NoError(t, err)

	notifs := sink.byType(NotificationTypeInterestAccepted)
	require.Len(t, notifs, 1)
	assert.Equal(t, "Your interest was accepted", notifs[0].Message)
}
