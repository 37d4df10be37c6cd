package email

import (
	"fmt"
	"log"
)

// SendActivityReminder envia o email de lembrete de uma atividade.
func (s *EmailService) SendActivityReminder(to, activityName, localTime string, leadMinutes int) error {
	subject := fmt.Sprintf("⏰ Lembrete: %s", activityName)
	htmlBody := ReminderTemplate(activityName, localTime, leadMinutes)

	if err := s.SendEmail(to, subject, htmlBody); err != nil {
		log.Printf("❌ Erro ao enviar email de lembrete: %v", err)
		return err
	}

	log.Printf("📧 Lembrete enviado por email para: %s", to)
	return nil
}
