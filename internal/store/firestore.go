package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"plenamente/pkg/models"
)

// Nomes de coleções no Firestore. "updates" e "sentNotifications" são
// sub-coleções de cada documento de usuário.
const (
	usersCollection = "users"
	updatesSub      = "updates"
	pushTokensSub   = "pushTokens"
	sentNotifsSub   = "sentNotifications"
	prefEmailField  = "notificationPreferences.emailReminders"
	prefPushField   = "notificationPreferences.mobilePush"
)

// Store é o acesso tipado aos documentos que o motor de lembretes lê.
// Toda a validação/normalização de campos opcionais acontece aqui, na
// fronteira de carga, e não espalhada pela lógica de seleção.
type Store struct {
	client *firestore.Client
}

func New(client *firestore.Client) *Store {
	return &Store{client: client}
}

// UsersByChannel lista os usuários com a flag de preferência do canal
// ligada. Usuários fora da flag nem entram na varredura daquele canal.
func (s *Store) UsersByChannel(ctx context.Context, channel string) ([]models.User, error) {
	var field string
	switch channel {
	case models.ChannelEmail:
		field = prefEmailField
	case models.ChannelPush:
		field = prefPushField
	default:
		return nil, fmt.Errorf("unknown channel %q", channel)
	}

	it := s.client.Collection(usersCollection).Where(field, "==", true).Documents(ctx)
	defer it.Stop()

	var users []models.User
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate users: %w", err)
		}

		var u models.User
		if err := doc.DataTo(&u); err != nil {
			// Documento fora do shape esperado: pula o usuário, não a varredura.
			continue
		}
		u.ID = doc.Ref.ID
		users = append(users, u)
	}

	return users, nil
}

// PendingUpdates carrega as ocorrências "pending" do usuário para as datas
// civis dadas (normalmente uma; duas quando a janela cruza a meia-noite).
func (s *Store) PendingUpdates(ctx context.Context, userID string, dates []string) ([]models.Update, error) {
	var updates []models.Update

	for _, date := range dates {
		it := s.client.Collection(usersCollection).Doc(userID).Collection(updatesSub).
			Where("date", "==", date).
			Where("status", "==", models.StatusPending).
			Documents(ctx)

		for {
			doc, err := it.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				it.Stop()
				return nil, fmt.Errorf("failed to query updates for %s: %w", date, err)
			}

			var up models.Update
			if err := doc.DataTo(&up); err != nil {
				continue
			}
			up.ID = doc.Ref.ID
			updates = append(updates, up)
		}
		it.Stop()
	}

	return updates, nil
}

// PushTokens lista os tokens de push do usuário, filtrados para
// plataformas móveis.
func (s *Store) PushTokens(ctx context.Context, userID string) ([]models.PushToken, error) {
	it := s.client.Collection(usersCollection).Doc(userID).Collection(pushTokensSub).Documents(ctx)
	defer it.Stop()

	var tokens []models.PushToken
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate push tokens: %w", err)
		}

		var t models.PushToken
		if err := doc.DataTo(&t); err != nil || t.Token == "" {
			continue
		}
		if !t.Mobile() {
			continue
		}
		tokens = append(tokens, t)
	}

	return tokens, nil
}

// DeletePushToken remove um token que o FCM reportou como inválido
// (desinstalação do app, token rotacionado etc).
func (s *Store) DeletePushToken(ctx context.Context, userID, token string) error {
	it := s.client.Collection(usersCollection).Doc(userID).Collection(pushTokensSub).
		Where("token", "==", token).
		Documents(ctx)
	defer it.Stop()

	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to find push token: %w", err)
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return fmt.Errorf("failed to delete push token: %w", err)
		}
	}

	return nil
}
