package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plenamente/internal/push"
	"plenamente/pkg/models"
)

type fakeDirectory struct {
	email string
	err   error
}

func (f *fakeDirectory) EmailByUserID(ctx context.Context, userID string) (string, error) {
	return f.email, f.err
}

type fakeEmailSender struct {
	to   string
	name string
	err  error
}

func (f *fakeEmailSender) SendActivityReminder(to, activityName, localTime string, leadMinutes int) error {
	f.to = to
	f.name = activityName
	return f.err
}

type fakeTokenStore struct {
	tokens  []models.PushToken
	err     error
	deleted []string
}

func (f *fakeTokenStore) PushTokens(ctx context.Context, userID string) ([]models.PushToken, error) {
	return f.tokens, f.err
}

func (f *fakeTokenStore) DeletePushToken(ctx context.Context, userID, token string) error {
	f.deleted = append(f.deleted, token)
	return nil
}

type fakePushSender struct {
	result *push.MulticastResult
	err    error
	sent   [][]string
}

func (f *fakePushSender) SendActivityReminder(ctx context.Context, tokens []string, activityName string, leadMinutes int, updateID, activityID, date string) (*push.MulticastResult, error) {
	f.sent = append(f.sent, tokens)
	return f.result, f.err
}

func sampleReminder() DueReminder {
	return DueReminder{
		Update:      models.Update{ID: "up1", ActivityID: "a1", Date: "2025-07-15", Status: models.StatusPending},
		Activity:    models.Activity{ID: "a1", Name: "Meditar"},
		DeliverAt:   time.Date(2025, time.July, 15, 12, 45, 0, 0, time.UTC),
		LeadMinutes: 15,
		LocalTime:   "09:00",
	}
}

func TestEmailChannelDeliver(t *testing.T) {
	sender := &fakeEmailSender{}
	ch := NewEmailChannel(&fakeDirectory{email: "ana@example.com"}, sender)

	err := ch.Deliver(context.Background(), &models.User{ID: "u1"}, sampleReminder())
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", sender.to)
	assert.Equal(t, "Meditar", sender.name)
}

func TestEmailChannelDirectoryFailure(t *testing.T) {
	sender := &fakeEmailSender{}
	ch := NewEmailChannel(&fakeDirectory{err: errors.New("no such user")}, sender)

	err := ch.Deliver(context.Background(), &models.User{ID: "u1"}, sampleReminder())
	assert.Error(t, err)
	assert.Empty(t, sender.to)
}

func TestPushChannelDeliverPartialSuccess(t *testing.T) {
	// Um token aceitou, outro era inválido: conta como entregue e o token
	// ruim é removido.
	tokens := &fakeTokenStore{tokens: []models.PushToken{
		{Token: "tok-bom", Platform: "android"},
		{Token: "tok-ruim", Platform: "ios"},
	}}
	sender := &fakePushSender{result: &push.MulticastResult{
		SuccessCount:  1,
		FailureCount:  1,
		InvalidTokens: []string{"tok-ruim"},
	}}
	ch := NewPushChannel(tokens, sender)

	err := ch.Deliver(context.Background(), &models.User{ID: "u1"}, sampleReminder())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"tok-bom", "tok-ruim"}}, sender.sent)
	assert.Equal(t, []string{"tok-ruim"}, tokens.deleted)
}

func TestPushChannelDeliverAllFailed(t *testing.T) {
	tokens := &fakeTokenStore{tokens: []models.PushToken{{Token: "tok", Platform: "ios"}}}
	sender := &fakePushSender{result: &push.MulticastResult{SuccessCount: 0, FailureCount: 1}}
	ch := NewPushChannel(tokens, sender)

	err := ch.Deliver(context.Background(), &models.User{ID: "u1"}, sampleReminder())
	assert.Error(t, err)
}

func TestPushChannelNoTokens(t *testing.T) {
	ch := NewPushChannel(&fakeTokenStore{}, &fakePushSender{})

	err := ch.Deliver(context.Background(), &models.User{ID: "u1"}, sampleReminder())
	assert.Error(t, err)
}
