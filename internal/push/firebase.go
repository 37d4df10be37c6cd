package push

import (
	"context"
	"fmt"
	"log"
	"time"

	"firebase.google.com/go/v4/messaging"
)

// FirebaseService envia pushes de lembrete via FCM.
// O client é injetado na construção para permitir fakes em teste.
type FirebaseService struct {
	client *messaging.Client
}

// MulticastResult resume um envio multicast: quantos tokens aceitaram a
// mensagem e quais o FCM reportou como inválidos (para limpeza).
type MulticastResult struct {
	SuccessCount  int
	FailureCount  int
	InvalidTokens []string
}

// Delivered indica se o envio conta como entregue: basta um token aceitar.
// Falhas token a token não são rastreadas individualmente.
func (r *MulticastResult) Delivered() bool {
	return r.SuccessCount > 0
}

func NewFirebaseService(client *messaging.Client) *FirebaseService {
	return &FirebaseService{client: client}
}

// SendActivityReminder envia o push de lembrete para todos os tokens
// móveis do usuário. O payload de dados carrega updateId/activityId/date
// para o app abrir a atividade certa ao tocar na notificação.
func (s *FirebaseService) SendActivityReminder(ctx context.Context, tokens []string, activityName string, leadMinutes int, updateID, activityID, date string) (*MulticastResult, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("no push tokens to send to")
	}

	var body string
	if leadMinutes > 0 {
		body = fmt.Sprintf("%s começa em %d minutos", activityName, leadMinutes)
	} else {
		body = fmt.Sprintf("É hora de: %s", activityName)
	}

	message := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: "⏰ Hora da sua atividade",
			Body:  body,
		},
		Data: map[string]string{
			"type":       "activity_reminder",
			"updateId":   updateID,
			"activityId": activityID,
			"date":       date,
			"timestamp":  fmt.Sprintf("%d", time.Now().Unix()),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:        "default",
				Priority:     messaging.PriorityHigh,
				ChannelID:    "plenamente_reminders",
				DefaultSound: true,
			},
		},
	}

	response, err := s.client.SendEachForMulticast(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("error sending reminder push: %w", err)
	}

	result := &MulticastResult{
		SuccessCount: response.SuccessCount,
		FailureCount: response.FailureCount,
	}

	for i, r := range response.Responses {
		if r.Error != nil && IsInvalidTokenError(r.Error) {
			result.InvalidTokens = append(result.InvalidTokens, tokens[i])
		}
	}

	log.Printf("📲 Push de lembrete: %d ok, %d falha(s) (%s)", result.SuccessCount, result.FailureCount, activityName)
	return result, nil
}

// IsInvalidTokenError verifica se o erro retornado pelo Firebase indica que o token é inválido.
func IsInvalidTokenError(err error) bool {
	if messaging.IsRegistrationTokenNotRegistered(err) || messaging.IsSenderIDMismatch(err) {
		return true
	}
	return false
}
