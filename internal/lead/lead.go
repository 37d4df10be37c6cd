package lead

import (
	"regexp"
	"strconv"
	"strings"
)

// Tabela de presets legados do onboarding antigo. Mantida explícita para
// compatibilidade com documentos gravados antes do campo virar texto livre.
var legacyPresets = map[string]int{
	"5m":  5,
	"10m": 10,
	"15m": 15,
	"30m": 30,
	"45m": 45,
	"1h":  60,
	"2h":  120,
}

var (
	minutesRe = regexp.MustCompile(`^(\d+)\s*(m|min|mins|minute|minutes)$`)
	hoursRe   = regexp.MustCompile(`^(\d+)\s*(h|hr|hrs|hour|hours)$`)
	digitsRe  = regexp.MustCompile(`^\d+$`)
)

// ParseBefore converte o campo livre "notifyBefore" em minutos de
// antecedência. Formato desconhecido vira 0 (lembrete no horário exato):
// nunca descartamos o lembrete por causa de um texto estranho.
func ParseBefore(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}

	if m, ok := legacyPresets[s]; ok {
		return m
	}

	if digitsRe.MatchString(s) {
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0
		}
		return n
	}

	if match := minutesRe.FindStringSubmatch(s); match != nil {
		n, err := strconv.Atoi(match[1])
		if err != nil {
			return 0
		}
		return n
	}

	if match := hoursRe.FindStringSubmatch(s); match != nil {
		n, err := strconv.Atoi(match[1])
		if err != nil {
			return 0
		}
		return n * 60
	}

	return 0
}
