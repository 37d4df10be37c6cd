package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

// PlanFeatures define as features disponíveis por plano.
// O plano gratuito não inclui lembretes automáticos.
var PlanFeatures = map[string]map[string]bool{
	"gratuito": {
		"quiz_onboarding":       true,
		"catalogo_atividades":   true,
		"historico_diario":      true,
		"lembretes_automaticos": false,
		"relatorios_semanais":   false,
	},
	"essencial": {
		"quiz_onboarding":       true,
		"catalogo_atividades":   true,
		"historico_diario":      true,
		"lembretes_automaticos": true,
		"relatorios_semanais":   false,
	},
	"premium": {
		"quiz_onboarding":       true,
		"catalogo_atividades":   true,
		"historico_diario":      true,
		"lembretes_automaticos": true,
		"relatorios_semanais":   true,
	},
}

// FeatureReminders é a feature que o dispatcher consulta.
const FeatureReminders = "lembretes_automaticos"

// subscriberResponse é o shape mínimo que lemos da API de assinaturas.
type subscriberResponse struct {
	Subscriber struct {
		Entitlements map[string]struct {
			ProductIdentifier string `json:"product_identifier"`
			ExpiresDate       string `json:"expires_date"`
		} `json:"entitlements"`
	} `json:"subscriber"`
}

type cachedPlan struct {
	plan      string
	fetchedAt time.Time
}

// Service é um proxy read-through para o provedor de assinaturas
// (RevenueCat). Respostas ficam em cache por um TTL curto para a
// varredura não martelar a API a cada ciclo.
type Service struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	ttl        time.Duration

	mu    sync.Mutex
	cache map[string]cachedPlan
}

func NewService(apiURL, apiKey string, cacheTTL time.Duration) *Service {
	return &Service{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiURL:     apiURL,
		apiKey:     apiKey,
		ttl:        cacheTTL,
		cache:      make(map[string]cachedPlan),
	}
}

// PlanByUserID resolve o plano atual do usuário. Sem entitlement ativo,
// o usuário está no plano gratuito.
func (s *Service) PlanByUserID(ctx context.Context, userID string) (string, error) {
	s.mu.Lock()
	if c, ok := s.cache[userID]; ok && time.Since(c.fetchedAt) < s.ttl {
		s.mu.Unlock()
		return c.plan, nil
	}
	s.mu.Unlock()

	plan, err := s.fetchPlan(ctx, userID)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.cache[userID] = cachedPlan{plan: plan, fetchedAt: time.Now()}
	s.mu.Unlock()

	return plan, nil
}

// HasFeature verifica se o plano do usuário inclui a feature.
// Em caso de erro na API, libera a feature: um lembrete a mais para um
// assinante expirado é melhor que silenciar todos os usuários pagantes.
func (s *Service) HasFeature(ctx context.Context, userID, feature string) bool {
	plan, err := s.PlanByUserID(ctx, userID)
	if err != nil {
		log.Printf("⚠️ Falha ao consultar assinatura de %s: %v", userID, err)
		return true
	}

	features, ok := PlanFeatures[plan]
	if !ok {
		return false
	}
	return features[feature]
}

// AllowsReminders é o gate que o dispatcher consulta por usuário.
func (s *Service) AllowsReminders(ctx context.Context, userID string) bool {
	return s.HasFeature(ctx, userID, FeatureReminders)
}

func (s *Service) fetchPlan(ctx context.Context, userID string) (string, error) {
	url := fmt.Sprintf("%s/subscribers/%s", s.apiURL, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build subscription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to query subscription API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "gratuito", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("subscription API returned status %d", resp.StatusCode)
	}

	var body subscriberResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode subscription response: %w", err)
	}

	// O nome do entitlement é o nome do plano.
	for name := range body.Subscriber.Entitlements {
		if _, known := PlanFeatures[name]; known {
			return name, nil
		}
	}

	return "gratuito", nil
}
