package store

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"plenamente/pkg/models"
)

// HasSent consulta o ledger de deduplicação: a existência do documento
// "{updateId}-{channel}" é o recibo de entrega.
func (s *Store) HasSent(ctx context.Context, userID, updateID, channel string) (bool, error) {
	ref := s.client.Collection(usersCollection).Doc(userID).
		Collection(sentNotifsSub).Doc(models.LedgerKey(updateID, channel))

	_, err := ref.Get(ctx)
	return ledgerEntryExists(err)
}

// MarkSent grava o recibo com Create (write-if-not-exists). AlreadyExists
// conta como sucesso: uma execução sobreposta que chegou primeiro já
// garantiu o envio, e regravar quebraria a garantia at-most-once.
func (s *Store) MarkSent(ctx context.Context, userID, updateID, channel string) error {
	ref := s.client.Collection(usersCollection).Doc(userID).
		Collection(sentNotifsSub).Doc(models.LedgerKey(updateID, channel))

	_, err := ref.Create(ctx, models.SentNotification{
		Channel:  channel,
		UpdateID: updateID,
		SentAt:   time.Now().UTC(),
	})
	return markSentResult(err)
}

// ledgerEntryExists interpreta o resultado do Get: NotFound significa
// "ainda não enviado", qualquer outro erro é falha de leitura.
func ledgerEntryExists(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	return false, fmt.Errorf("failed to read ledger entry: %w", err)
}

// markSentResult interpreta o resultado do Create: AlreadyExists é
// sucesso (outra instância marcou primeiro), o resto é falha de escrita.
func markSentResult(err error) error {
	if err == nil || status.Code(err) == codes.AlreadyExists {
		return nil
	}
	return fmt.Errorf("failed to write ledger entry: %w", err)
}
