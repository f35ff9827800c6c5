package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trainerleave/internal/domain/leave"
)

type memStore struct {
	created []Notification
	emails  map[string]string
	failFor string
}

func (m *memStore) CreateNotification(_ context.Context, n Notification) error {
	if n.UserID == m.failFor {
		return errors.New("insert failed")
	}
	m.created = append(m.created, n)
	return nil
}

func (m *memStore) UserEmail(_ context.Context, userID string) (string, error) {
	return m.emails[userID], nil
}

func (m *memStore) ListNotifications(context.Context, string, int, int) ([]Notification, error) {
	return m.created, nil
}

func (m *memStore) CountNotifications(context.Context, string) (int, error) {
	return len(m.created), nil
}

func (m *memStore) MarkRead(context.Context, string, string) error { return nil }

type sentMail struct{ to, subject, body string }

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, _, to, subject, body string) error {
	f.sent = append(f.sent, sentMail{to, subject, body})
	return f.err
}

func TestNotifyStoresPublishesAndMails(t *testing.T) {
	store := &memStore{emails: map[string]string{"trainer-a": "a@example.com"}}
	mailer := &fakeMailer{}
	registry := NewRegistry(4)
	svc := New(store, mailer, registry)
	svc.EmailEnabled = true

	session := registry.Subscribe("trainer-a")
	defer registry.Unsubscribe(session)

	req := leave.LeaveRequest{
		ID: "r1", TrainerID: "trainer-a", LeaveType: leave.TypeSick, Status: leave.StatusApproved,
		FromDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), ToDate: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), NumberOfDays: 3,
	}
	err := svc.Notify(context.Background(), []string{"trainer-a", "trainer-a", ""}, TypeLeaveApproved, map[string]any{"request": req})
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	assert.Equal(t, "Your leave request was approved", store.created[0].Title)
	assert.Contains(t, store.created[0].Body, "SICK leave from 2025-03-10 to 2025-03-12 (3 days) is now APPROVED")

	select {
	case n := <-session.C():
		assert.Equal(t, TypeLeaveApproved, n.Type)
	default:
		t.Fatal("expected live notification")
	}

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "a@example.com", mailer.sent[0].to)
}

func TestNotifyMailFailureIsSwallowed(t *testing.T) {
	store := &memStore{emails: map[string]string{"u1": "u1@example.com"}}
	svc := New(store, &fakeMailer{err: errors.New("smtp down")}, nil)
	svc.EmailEnabled = true

	require.NoError(t, svc.Notify(context.Background(), []string{"u1"}, TypeLeaveApplied, nil))
	assert.Len(t, store.created, 1)
}

func TestNotifyJoinsStoreFailures(t *testing.T) {
	store := &memStore{failFor: "bad"}
	svc := New(store, nil, nil)

	err := svc.Notify(context.Background(), []string{"bad", "good"}, TypeLeaveCancelled, nil)
	require.Error(t, err)
	assert.Len(t, store.created, 1)
	assert.Equal(t, "good", store.created[0].UserID)
}

func TestRegistryDropsWhenFullAndClosesOnce(t *testing.T) {
	registry := NewRegistry(1)
	s := registry.Subscribe("u1")
	assert.Equal(t, 1, registry.Count("u1"))

	assert.Equal(t, 1, registry.Publish("u1", Notification{ID: "1"}))
	assert.Equal(t, 0, registry.Publish("u1", Notification{ID: "2"}))
	assert.Equal(t, 0, registry.Publish("nobody", Notification{ID: "3"}))

	registry.Unsubscribe(s)
	registry.Unsubscribe(s)
	assert.Zero(t, registry.Count("u1"))

	n, ok := <-s.C()
	assert.True(t, ok)
	assert.Equal(t, "1", n.ID)
	_, ok = <-s.C()
	assert.False(t, ok)
}

func TestRegistryClose(t *testing.T) {
	registry := NewRegistry(0)
	a := registry.Subscribe("u1")
	b := registry.Subscribe("u2")
	registry.Close()

	_, okA := <-a.C()
	_, okB := <-b.C()
	assert.False(t, okA)
	assert.False(t, okB)
}
