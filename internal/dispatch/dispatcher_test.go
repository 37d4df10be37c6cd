package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plenamente/pkg/models"
)

// --- fakes ---

type fakeStore struct {
	users   []models.User
	updates map[string][]models.Update
	dates   [][]string
}

func (f *fakeStore) UsersByChannel(ctx context.Context, channel string) ([]models.User, error) {
	return f.users, nil
}

func (f *fakeStore) PendingUpdates(ctx context.Context, userID string, dates []string) ([]models.Update, error) {
	f.dates = append(f.dates, dates)
	return f.updates[userID], nil
}

type fakeLedger struct {
	entries map[string]bool
	markErr error
	hasErr  error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{entries: map[string]bool{}}
}

func (f *fakeLedger) HasSent(ctx context.Context, userID, updateID, channel string) (bool, error) {
	if f.hasErr != nil {
		return false, f.hasErr
	}
	return f.entries[userID+"/"+models.LedgerKey(updateID, channel)], nil
}

func (f *fakeLedger) MarkSent(ctx context.Context, userID, updateID, channel string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.entries[userID+"/"+models.LedgerKey(updateID, channel)] = true
	return nil
}

type fakeChannel struct {
	name      string
	delivered []string
	failWith  error
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Deliver(ctx context.Context, user *models.User, r DueReminder) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.delivered = append(f.delivered, user.ID+"/"+r.Update.ID)
	return nil
}

type fakeGate struct{ allow bool }

func (f *fakeGate) AllowsReminders(ctx context.Context, userID string) bool { return f.allow }

// --- helpers ---

func fixedOffset(m int) *int { return &m }

// Usuário UTC com atividade às 12:45 e ocorrência pendente de hoje.
func storeWithDueUser() *fakeStore {
	return &fakeStore{
		users: []models.User{{
			ID:                      "u1",
			NotificationPreferences: models.NotificationPreferences{EmailReminders: true, MobilePush: true},
			Activities: []models.Activity{
				{ID: "a1", Name: "Meditar", Time: &models.ClockTime{Hour: 12, Minute: 45}},
			},
		}},
		updates: map[string][]models.Update{
			"u1": {{ID: "up1", ActivityID: "a1", Date: "2025-07-15", Status: models.StatusPending}},
		},
	}
}

func testDispatcher(st *fakeStore, lg *fakeLedger, ch *fakeChannel, gate Gate, now time.Time) *Dispatcher {
	d := NewDispatcher(st, lg, ch, gate, 5*time.Minute, 6*time.Minute)
	d.now = func() time.Time { return now }
	return d
}

// --- tests ---

func TestDispatcherSendsAndMarks(t *testing.T) {
	st := storeWithDueUser()
	lg := newFakeLedger()
	ch := &fakeChannel{name: models.ChannelEmail}

	d := testDispatcher(st, lg, ch, nil, utc(2025, time.July, 15, 12, 46))
	require.NoError(t, d.Run(context.Background()))

	assert.Equal(t, []string{"u1/up1"}, ch.delivered)
	assert.True(t, lg.entries["u1/up1-email"])

	stats := d.GetStats()
	assert.Equal(t, int64(1), stats.Sent)
	assert.Equal(t, int64(0), stats.Failures)
}

func TestDispatcherIdempotence(t *testing.T) {
	// Mesmo "now" reexecutado: a segunda passada não envia nada porque o
	// recibo da primeira já existe no ledger.
	st := storeWithDueUser()
	lg := newFakeLedger()
	ch := &fakeChannel{name: models.ChannelEmail}

	now := utc(2025, time.July, 15, 12, 46)

	d1 := testDispatcher(st, lg, ch, nil, now)
	require.NoError(t, d1.Run(context.Background()))
	require.Len(t, ch.delivered, 1)

	d2 := testDispatcher(st, lg, ch, nil, now)
	require.NoError(t, d2.Run(context.Background()))

	assert.Len(t, ch.delivered, 1)
	assert.Equal(t, int64(1), d2.GetStats().Duplicates)
	assert.Equal(t, int64(0), d2.GetStats().Sent)
}

func TestDispatcherOverlappingWindowsSendOnce(t *testing.T) {
	// Duas varreduras consecutivas cujas janelas se sobrepõem veem a mesma
	// ocorrência; o ledger garante um único envio.
	st := storeWithDueUser()
	lg := newFakeLedger()
	ch := &fakeChannel{name: models.ChannelPush}

	d := testDispatcher(st, lg, ch, nil, utc(2025, time.July, 15, 12, 46))
	require.NoError(t, d.Run(context.Background()))

	d.now = func() time.Time { return utc(2025, time.July, 15, 12, 50) }
	require.NoError(t, d.Run(context.Background()))

	assert.Len(t, ch.delivered, 1)
}

func TestDispatcherTransportFailureLeavesLedgerUnmarked(t *testing.T) {
	st := storeWithDueUser()
	lg := newFakeLedger()
	ch := &fakeChannel{name: models.ChannelEmail, failWith: errors.New("smtp down")}

	now := utc(2025, time.July, 15, 12, 46)
	d := testDispatcher(st, lg, ch, nil, now)
	require.NoError(t, d.Run(context.Background()))

	assert.Empty(t, lg.entries)
	assert.Equal(t, int64(1), d.GetStats().Failures)

	// Transporte volta: a mesma varredura (janela ainda cobre o instante)
	// entrega com sucesso: o retry é a própria reexecução do ciclo.
	ch.failWith = nil
	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, []string{"u1/up1"}, ch.delivered)
	assert.True(t, lg.entries["u1/up1-email"])
}

func TestDispatcherLedgerWriteFailureDoesNotCountAsSent(t *testing.T) {
	st := storeWithDueUser()
	lg := newFakeLedger()
	lg.markErr = errors.New("firestore unavailable")
	ch := &fakeChannel{name: models.ChannelEmail}

	d := testDispatcher(st, lg, ch, nil, utc(2025, time.July, 15, 12, 46))
	require.NoError(t, d.Run(context.Background()))

	// Envio aconteceu, recibo não: o contador de falhas registra o caso.
	assert.Len(t, ch.delivered, 1)
	assert.Equal(t, int64(1), d.GetStats().Failures)
	assert.Equal(t, int64(0), d.GetStats().Sent)
}

func TestDispatcherGateBlocksUser(t *testing.T) {
	st := storeWithDueUser()
	lg := newFakeLedger()
	ch := &fakeChannel{name: models.ChannelEmail}

	d := testDispatcher(st, lg, ch, &fakeGate{allow: false}, utc(2025, time.July, 15, 12, 46))
	require.NoError(t, d.Run(context.Background()))
	assert.Empty(t, ch.delivered)

	d = testDispatcher(st, lg, ch, &fakeGate{allow: true}, utc(2025, time.July, 15, 12, 46))
	require.NoError(t, d.Run(context.Background()))
	assert.Len(t, ch.delivered, 1)
}

func TestDispatcherUsesFixedOffsetZone(t *testing.T) {
	// Usuário com offset fixo -240 (UTC-4): atividade às 08:45 locais fica
	// devida às 12:45 UTC.
	st := &fakeStore{
		users: []models.User{{
			ID:                    "u2",
			TimezoneOffsetMinutes: fixedOffset(-240),
			Activities: []models.Activity{
				{ID: "a1", Name: "Caminhar", Time: &models.ClockTime{Hour: 8, Minute: 45}},
			},
		}},
		updates: map[string][]models.Update{
			"u2": {{ID: "up2", ActivityID: "a1", Date: "2025-07-15", Status: models.StatusPending}},
		},
	}
	lg := newFakeLedger()
	ch := &fakeChannel{name: models.ChannelPush}

	d := testDispatcher(st, lg, ch, nil, utc(2025, time.July, 15, 12, 46))
	require.NoError(t, d.Run(context.Background()))
	assert.Equal(t, []string{"u2/up2"}, ch.delivered)

	// A data consultada é a data local do usuário.
	require.NotEmpty(t, st.dates)
	assert.Equal(t, []string{"2025-07-15"}, st.dates[0])
}

func TestDispatcherSkipsUnresolvableZoneUser(t *testing.T) {
	st := storeWithDueUser()
	st.users[0].TimezoneName = "Zona/Errada"
	lg := newFakeLedger()
	ch := &fakeChannel{name: models.ChannelEmail}

	d := testDispatcher(st, lg, ch, nil, utc(2025, time.July, 15, 12, 46))
	require.NoError(t, d.Run(context.Background()))

	// Usuário pulado sem derrubar o ciclo.
	assert.Empty(t, ch.delivered)
	assert.Equal(t, int64(1), d.GetStats().UsersScanned)
}

func TestDispatcherWindowNeverSmallerThanInterval(t *testing.T) {
	d := NewDispatcher(&fakeStore{}, newFakeLedger(), &fakeChannel{name: models.ChannelEmail}, nil, 5*time.Minute, time.Minute)
	assert.Equal(t, 5*time.Minute, d.window)
}
