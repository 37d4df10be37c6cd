package timeutil

import (
	"fmt"
	"time"
)

// DateLayout é o formato de data usado nos documentos de Update.
const DateLayout = "2006-01-02"

// Zone é o fuso efetivo de um usuário, já com a precedência aplicada:
// zona nomeada IANA quando presente, offset fixo como fallback, UTC
// quando nenhum dos dois existe.
type Zone struct {
	Name          string // zona IANA, ex: "America/Sao_Paulo"
	OffsetMinutes int    // minutos a leste de UTC (local = UTC + offset)
	HasOffset     bool
}

// UserZone monta o Zone a partir dos campos do documento do usuário.
func UserZone(timezoneName string, timezoneOffsetMinutes *int) Zone {
	if timezoneName != "" {
		return Zone{Name: timezoneName}
	}
	if timezoneOffsetMinutes != nil {
		return Zone{OffsetMinutes: *timezoneOffsetMinutes, HasOffset: true}
	}
	return Zone{}
}

// Resolve converte (data civil, horário local, fuso) no instante UTC absoluto.
//
// Para zonas nomeadas usa refinamento em duas passadas: (a) chute inicial
// tratando o relógio local como se fosse UTC; (b) offset da zona consultado
// NESSE instante; (c) chute menos offset = instante refinado; (d) offset
// reconsultado no instante refinado; se mudou (cruzamos fronteira de DST),
// recalcula uma única vez com o segundo offset. O caso raríssimo de dupla
// travessia fica como aproximação aceita.
//
// Zona irreconhecível ou data malformada retornam erro; quem chama deve
// pular o lembrete em vez de chutar.
func Resolve(date string, hour, minute int, z Zone) (time.Time, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid clock time %02d:%02d", hour, minute)
	}

	guess := time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, time.UTC)

	if z.Name != "" {
		loc, err := time.LoadLocation(z.Name)
		if err != nil {
			return time.Time{}, fmt.Errorf("unknown timezone %q: %w", z.Name, err)
		}
		first := offsetAt(guess, loc)
		refined := guess.Add(-time.Duration(first) * time.Second)
		if second := offsetAt(refined, loc); second != first {
			refined = guess.Add(-time.Duration(second) * time.Second)
		}
		return refined, nil
	}

	if z.HasOffset {
		return guess.Add(-time.Duration(z.OffsetMinutes) * time.Minute), nil
	}

	// Sem zona e sem offset: o horário já é tratado como UTC.
	return guess, nil
}

// LocalDate retorna a data civil (YYYY-MM-DD) de um instante no fuso dado.
func LocalDate(t time.Time, z Zone) (string, error) {
	if z.Name != "" {
		loc, err := time.LoadLocation(z.Name)
		if err != nil {
			return "", fmt.Errorf("unknown timezone %q: %w", z.Name, err)
		}
		return t.In(loc).Format(DateLayout), nil
	}
	if z.HasOffset {
		return t.UTC().Add(time.Duration(z.OffsetMinutes) * time.Minute).Format(DateLayout), nil
	}
	return t.UTC().Format(DateLayout), nil
}

// offsetAt é a sonda de offset: segundos a leste de UTC que a zona
// reporta para o instante t.
func offsetAt(t time.Time, loc *time.Location) int {
	_, off := t.In(loc).Zone()
	return off
}
