package store

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
)

// Directory resolve o endereço de email de um usuário via Firebase Auth.
// O documento do usuário no Firestore não carrega email; a conta de
// autenticação é a fonte de verdade.
type Directory struct {
	auth *auth.Client
}

func NewDirectory(client *auth.Client) *Directory {
	return &Directory{auth: client}
}

func (d *Directory) EmailByUserID(ctx context.Context, userID string) (string, error) {
	record, err := d.auth.GetUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve user %s: %w", userID, err)
	}
	if record.Email == "" {
		return "", fmt.Errorf("user %s has no email address", userID)
	}
	return record.Email, nil
}
