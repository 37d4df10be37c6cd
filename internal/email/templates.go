package email

import "fmt"

// ReminderTemplate gera o HTML do email de lembrete de atividade.
// localTime é o horário agendado no relógio do usuário (ex: "09:00").
func ReminderTemplate(activityName, localTime string, leadMinutes int) string {
	var lead string
	if leadMinutes > 0 {
		lead = fmt.Sprintf("Começa em %d minutos, às %s.", leadMinutes, localTime)
	} else {
		lead = fmt.Sprintf("É agora, às %s.", localTime)
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 8px; overflow: hidden; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .header { background-color: #5B8C5A; color: white; padding: 20px; text-align: center; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { padding: 30px; }
        .reminder-box { background-color: #EAF4EA; border-left: 4px solid #5B8C5A; padding: 15px; margin: 20px 0; }
        .footer { background-color: #f8f9fa; padding: 15px; text-align: center; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>⏰ Hora da sua atividade</h1>
        </div>
        <div class="content">
            <div class="reminder-box">
                <strong>%s</strong><br>
                %s
            </div>

            <p>Reserve esse momento para você. Pequenos rituais diários constroem grandes mudanças.</p>
        </div>
        <div class="footer">
            <p>Este é um email automático do Plenamente</p>
            <p>Você recebe lembretes porque eles estão ativados nas suas preferências. É possível desativá-los no app.</p>
        </div>
    </div>
</body>
</html>
    `, activityName, lead)
}
