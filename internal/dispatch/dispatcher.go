package dispatch

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"plenamente/internal/timeutil"
	"plenamente/pkg/models"
)

// Store é a leitura dos documentos que a varredura consome.
type Store interface {
	UsersByChannel(ctx context.Context, channel string) ([]models.User, error)
	PendingUpdates(ctx context.Context, userID string, dates []string) ([]models.Update, error)
}

// Ledger é o registro de deduplicação: ler antes de enviar, gravar depois.
type Ledger interface {
	HasSent(ctx context.Context, userID, updateID, channel string) (bool, error)
	MarkSent(ctx context.Context, userID, updateID, channel string) error
}

// Gate decide se o plano do usuário inclui lembretes automáticos.
// Opcional: nil desliga o gate.
type Gate interface {
	AllowsReminders(ctx context.Context, userID string) bool
}

// Stats são os contadores acumulados de um dispatcher, expostos em /api/stats.
type Stats struct {
	Cycles       int64 `json:"cycles"`
	UsersScanned int64 `json:"users_scanned"`
	Sent         int64 `json:"sent"`
	Duplicates   int64 `json:"duplicates_skipped"`
	Failures     int64 `json:"failures"`
}

// Dispatcher é o job periódico de um canal: enumera usuários elegíveis,
// seleciona ocorrências devidas, entrega e registra no ledger. Não guarda
// estado entre ciclos além do próprio ledger: reexecutar é sempre seguro.
type Dispatcher struct {
	store    Store
	ledger   Ledger
	channel  Channel
	gate     Gate
	interval time.Duration
	window   time.Duration
	now      func() time.Time

	cycles       atomic.Int64
	usersScanned atomic.Int64
	sent         atomic.Int64
	duplicates   atomic.Int64
	failures     atomic.Int64
}

func NewDispatcher(store Store, ledger Ledger, channel Channel, gate Gate, interval, window time.Duration) *Dispatcher {
	if window < interval {
		// Janela menor que a cadência deixaria buracos entre execuções.
		window = interval
	}
	return &Dispatcher{
		store:    store,
		ledger:   ledger,
		channel:  channel,
		gate:     gate,
		interval: interval,
		window:   window,
		now:      time.Now,
	}
}

// Name e Interval implementam workers.Worker.
func (d *Dispatcher) Name() string            { return d.channel.Name() + "-reminders" }
func (d *Dispatcher) Interval() time.Duration { return d.interval }

// Run executa um ciclo completo da varredura. Falhas por usuário ou por
// lembrete são logadas e não derrubam o ciclo.
func (d *Dispatcher) Run(ctx context.Context) error {
	now := d.now().UTC()
	d.cycles.Add(1)

	users, err := d.store.UsersByChannel(ctx, d.channel.Name())
	if err != nil {
		return fmt.Errorf("failed to enumerate users: %w", err)
	}

	for i := range users {
		if ctx.Err() != nil {
			// Ciclo cortado pelo timeout da plataforma: o que ficou sem
			// envio segue sem recibo no ledger e a próxima varredura pega,
			// enquanto a janela (já deslocada) ainda cobrir o instante.
			return ctx.Err()
		}
		d.scanUser(ctx, now, &users[i])
	}

	return nil
}

func (d *Dispatcher) scanUser(ctx context.Context, now time.Time, user *models.User) {
	d.usersScanned.Add(1)

	if d.gate != nil && !d.gate.AllowsReminders(ctx, user.ID) {
		return
	}

	zone := timeutil.UserZone(user.TimezoneName, user.TimezoneOffsetMinutes)

	dates, err := scanDates(now, d.window, zone)
	if err != nil {
		// Fuso irresolvível: dado ruim, não falha do sistema. Pula o usuário.
		log.Printf("⚠️ [%s] Fuso irresolvível para %s: %v", d.Name(), user.ID, err)
		return
	}

	updates, err := d.store.PendingUpdates(ctx, user.ID, dates)
	if err != nil {
		log.Printf("❌ [%s] Erro ao carregar updates de %s: %v", d.Name(), user.ID, err)
		d.failures.Add(1)
		return
	}

	due := SelectDue(now, d.window, zone, user.ActivityByID(), updates)

	for _, reminder := range due {
		d.deliver(ctx, user, reminder)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, user *models.User, r DueReminder) {
	channel := d.channel.Name()

	sent, err := d.ledger.HasSent(ctx, user.ID, r.Update.ID, channel)
	if err != nil {
		log.Printf("❌ [%s] Erro ao consultar ledger (%s): %v", d.Name(), r.Update.ID, err)
		d.failures.Add(1)
		return
	}
	if sent {
		d.duplicates.Add(1)
		return
	}

	if err := d.channel.Deliver(ctx, user, r); err != nil {
		// Ledger fica sem recibo de propósito: a próxima varredura tenta de
		// novo enquanto o instante ainda estiver dentro da janela dela.
		log.Printf("❌ [%s] Falha ao entregar %q para %s: %v", d.Name(), r.Activity.Name, user.ID, err)
		d.failures.Add(1)
		return
	}

	if err := d.ledger.MarkSent(ctx, user.ID, r.Update.ID, channel); err != nil {
		// Enviado mas sem recibo: o Create condicional da próxima tentativa
		// segura a duplicata se outra execução gravar antes.
		log.Printf("⚠️ [%s] Envio ok mas ledger falhou (%s): %v", d.Name(), r.Update.ID, err)
		d.failures.Add(1)
		return
	}

	d.sent.Add(1)
	log.Printf("✅ [%s] Lembrete %q entregue para %s", d.Name(), r.Activity.Name, user.ID)
}

// GetStats retorna um snapshot dos contadores.
func (d *Dispatcher) GetStats() Stats {
	return Stats{
		Cycles:       d.cycles.Load(),
		UsersScanned: d.usersScanned.Load(),
		Sent:         d.sent.Load(),
		Duplicates:   d.duplicates.Load(),
		Failures:     d.failures.Load(),
	}
}
