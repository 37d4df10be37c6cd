package dispatch

import (
	"fmt"
	"time"

	"plenamente/internal/lead"
	"plenamente/internal/timeutil"
	"plenamente/pkg/models"
)

// DueReminder é uma ocorrência cujo instante efetivo de entrega caiu na
// janela da varredura atual, já com tudo que a renderização precisa.
type DueReminder struct {
	Update      models.Update
	Activity    models.Activity
	DeliverAt   time.Time // instante UTC de entrega (horário menos antecedência)
	LeadMinutes int
	LocalTime   string // horário agendado no relógio do usuário, ex: "09:00"
}

// SelectDue computa o subconjunto de ocorrências com instante efetivo de
// entrega dentro de (now-window, now].
//
// A janela retroativa meio-aberta é o mecanismo central de correção: como a
// varredura roda periodicamente e não continuamente, um instante que caiu
// entre duas execuções precisa ser capturado exatamente uma vez pela
// execução seguinte. Janela >= cadência evita buracos; o ledger impede que a
// sobreposição inevitável duplique envios.
//
// Ocorrências sem horário resolvível (nem na instância nem na atividade
// pai) e ocorrências cujo fuso não resolve são puladas em silêncio: é
// problema de qualidade de dado, não falha do sistema.
func SelectDue(now time.Time, window time.Duration, zone timeutil.Zone, activities map[string]models.Activity, updates []models.Update) []DueReminder {
	windowStart := now.Add(-window)

	var due []DueReminder
	for _, up := range updates {
		if up.Status != models.StatusPending {
			continue
		}

		activity, ok := activities[up.ActivityID]
		if !ok {
			// Atividade apagada do catálogo: sem nome não há mensagem.
			continue
		}

		clock, ok := up.EffectiveTime(&activity)
		if !ok {
			continue
		}

		occurrence, err := timeutil.Resolve(up.Date, clock.Hour, clock.Minute, zone)
		if err != nil {
			continue
		}

		leadMinutes := lead.ParseBefore(activity.NotifyBefore)
		deliverAt := occurrence.Add(-time.Duration(leadMinutes) * time.Minute)

		if deliverAt.After(windowStart) && !deliverAt.After(now) {
			due = append(due, DueReminder{
				Update:      up,
				Activity:    activity,
				DeliverAt:   deliverAt,
				LeadMinutes: leadMinutes,
				LocalTime:   fmt.Sprintf("%02d:%02d", clock.Hour, clock.Minute),
			})
		}
	}

	return due
}

// scanDates retorna as datas civis locais que a janela atual cobre:
// normalmente só a de hoje, mas também a de ontem quando a janela cruza a
// meia-noite local (uma ocorrência de 23:58 ainda precisa ser vista pela
// primeira varredura depois da virada).
func scanDates(now time.Time, window time.Duration, zone timeutil.Zone) ([]string, error) {
	today, err := timeutil.LocalDate(now, zone)
	if err != nil {
		return nil, err
	}
	earlier, err := timeutil.LocalDate(now.Add(-window), zone)
	if err != nil {
		return nil, err
	}
	if earlier != today {
		return []string{earlier, today}, nil
	}
	return []string{today}, nil
}
