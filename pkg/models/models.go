package models

import "time"

// Status possíveis de um Update (ocorrência diária de atividade).
// Somente "pending" é candidato a lembrete.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusMissed    = "missed"
	StatusDeleted   = "deleted"
)

// Canais de entrega de lembretes.
const (
	ChannelEmail = "email"
	ChannelPush  = "push"
)

// ClockTime é um horário local de relógio (24h), sem data e sem fuso.
type ClockTime struct {
	Hour   int `json:"hour" firestore:"hour"`
	Minute int `json:"minute" firestore:"minute"`
}

// NotificationPreferences são as flags independentes por canal.
// Cada flag decide se o usuário entra na varredura daquele canal.
type NotificationPreferences struct {
	EmailReminders bool `json:"emailReminders" firestore:"emailReminders"`
	MobilePush     bool `json:"mobilePush" firestore:"mobilePush"`
}

// Activity é um procedimento recorrente definido pelo usuário no onboarding.
// Imutável do ponto de vista do motor de lembretes.
type Activity struct {
	ID           string     `json:"id" firestore:"id"`
	Name         string     `json:"name" firestore:"name"`
	Time         *ClockTime `json:"time,omitempty" firestore:"time"`
	NotifyBefore string     `json:"notifyBefore,omitempty" firestore:"notifyBefore"`
}

// User é o modelo de leitura tipado do documento Firestore do usuário.
// O motor só lê estes campos; o restante do documento pertence ao app.
type User struct {
	ID                      string                  `json:"userId" firestore:"-"`
	NotificationPreferences NotificationPreferences `json:"notificationPreferences" firestore:"notificationPreferences"`
	TimezoneName            string                  `json:"timezoneName,omitempty" firestore:"timezoneName"`
	TimezoneOffsetMinutes   *int                    `json:"timezoneOffsetMinutes,omitempty" firestore:"timezoneOffsetMinutes"`
	Activities              []Activity              `json:"activities" firestore:"activities"`
}

// ActivityByID indexa o catálogo de atividades do usuário.
func (u *User) ActivityByID() map[string]Activity {
	idx := make(map[string]Activity, len(u.Activities))
	for _, a := range u.Activities {
		idx[a.ID] = a
	}
	return idx
}

// Update é uma ocorrência concreta de uma Activity em uma data específica,
// materializada pela geração de tarefas (fora do escopo deste motor).
type Update struct {
	ID         string     `json:"id" firestore:"-"`
	ActivityID string     `json:"activityId" firestore:"activityId"`
	Date       string     `json:"date" firestore:"date"` // YYYY-MM-DD
	Status     string     `json:"status" firestore:"status"`
	Time       *ClockTime `json:"time,omitempty" firestore:"time"`
}

// EffectiveTime resolve o horário efetivo da ocorrência: o override da
// instância tem precedência sobre o horário padrão da atividade pai.
// Retorna false quando nenhum dos dois existe (lembrete irresolvível).
func (up *Update) EffectiveTime(parent *Activity) (ClockTime, bool) {
	if up.Time != nil {
		return *up.Time, true
	}
	if parent != nil && parent.Time != nil {
		return *parent.Time, true
	}
	return ClockTime{}, false
}

// PushToken é um destino de push registrado pelo app móvel.
type PushToken struct {
	Token    string `json:"token" firestore:"token"`
	Platform string `json:"platform" firestore:"platform"`
}

// Mobile indica se o token pertence a uma plataforma móvel.
// Tokens de navegador ("web") ficam fora do canal de push.
func (t PushToken) Mobile() bool {
	return t.Platform == "ios" || t.Platform == "android"
}

// SentNotification é o recibo de entrega no ledger de deduplicação.
// A existência do documento significa "já enviado" naquele canal;
// o motor nunca atualiza nem remove estes registros.
type SentNotification struct {
	Channel  string    `json:"channel" firestore:"channel"`
	UpdateID string    `json:"updateId" firestore:"updateId"`
	SentAt   time.Time `json:"sentAt" firestore:"sentAt"`
}

// LedgerKey é a chave do documento do ledger: "{updateId}-{channel}".
func LedgerKey(updateID, channel string) string {
	return updateID + "-" + channel
}
