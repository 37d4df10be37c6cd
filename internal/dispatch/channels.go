package dispatch

import (
	"context"
	"fmt"
	"log"

	"plenamente/internal/push"
	"plenamente/pkg/models"
)

// Channel é um canal de entrega de lembretes. A lógica de janela e fuso é
// uma só; só a renderização e o transporte variam por canal.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, user *models.User, r DueReminder) error
}

// EmailDirectory resolve o endereço de email de um usuário (Firebase Auth).
type EmailDirectory interface {
	EmailByUserID(ctx context.Context, userID string) (string, error)
}

// EmailSender é o transporte SMTP (internal/email).
type EmailSender interface {
	SendActivityReminder(to, activityName, localTime string, leadMinutes int) error
}

// EmailChannel entrega lembretes por email.
type EmailChannel struct {
	directory EmailDirectory
	sender    EmailSender
}

func NewEmailChannel(directory EmailDirectory, sender EmailSender) *EmailChannel {
	return &EmailChannel{directory: directory, sender: sender}
}

func (c *EmailChannel) Name() string { return models.ChannelEmail }

func (c *EmailChannel) Deliver(ctx context.Context, user *models.User, r DueReminder) error {
	address, err := c.directory.EmailByUserID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to resolve email: %w", err)
	}
	return c.sender.SendActivityReminder(address, r.Activity.Name, r.LocalTime, r.LeadMinutes)
}

// TokenStore lê e limpa os tokens de push do usuário.
type TokenStore interface {
	PushTokens(ctx context.Context, userID string) ([]models.PushToken, error)
	DeletePushToken(ctx context.Context, userID, token string) error
}

// PushSender é o transporte FCM (internal/push).
type PushSender interface {
	SendActivityReminder(ctx context.Context, tokens []string, activityName string, leadMinutes int, updateID, activityID, date string) (*push.MulticastResult, error)
}

// PushChannel entrega lembretes por push móvel. Multicast para todos os
// tokens móveis do usuário; basta um aceitar para contar como entregue.
type PushChannel struct {
	tokens TokenStore
	sender PushSender
}

func NewPushChannel(tokens TokenStore, sender PushSender) *PushChannel {
	return &PushChannel{tokens: tokens, sender: sender}
}

func (c *PushChannel) Name() string { return models.ChannelPush }

func (c *PushChannel) Deliver(ctx context.Context, user *models.User, r DueReminder) error {
	registered, err := c.tokens.PushTokens(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load push tokens: %w", err)
	}
	if len(registered) == 0 {
		return fmt.Errorf("user %s has no mobile push tokens", user.ID)
	}

	tokens := make([]string, len(registered))
	for i, t := range registered {
		tokens[i] = t.Token
	}

	result, err := c.sender.SendActivityReminder(ctx, tokens, r.Activity.Name, r.LeadMinutes, r.Update.ID, r.Update.ActivityID, r.Update.Date)
	if err != nil {
		return err
	}

	// Limpeza best-effort dos tokens que o FCM rejeitou de vez.
	for _, invalid := range result.InvalidTokens {
		if err := c.tokens.DeletePushToken(ctx, user.ID, invalid); err != nil {
			log.Printf("⚠️ Falha ao remover token inválido de %s: %v", user.ID, err)
		}
	}

	if !result.Delivered() {
		return fmt.Errorf("no push token accepted the message")
	}
	return nil
}
