package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// Firebase (Firestore + FCM + Auth)
	FirebaseCredentialsPath string

	// Dispatcher
	DispatchIntervalMinutes int // cadência da varredura (minutos)
	WindowMarginMinutes     int // folga além do intervalo para tolerar jitter
	EnableEmailReminders    bool
	EnablePushReminders     bool

	// Subscription gate (proxy RevenueCat)
	EnableSubscriptionGate bool
	SubscriptionAPIURL     string
	SubscriptionAPIKey     string
	SubscriptionCacheTTL   int // minutos

	// SMTP
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPFromName  string
	SMTPFromEmail string
}

func Load() (*Config, error) {
	environment := getEnvWithDefault("ENVIRONMENT", "development")

	// Em produção as variáveis vêm do ambiente do processo; o .env é
	// conveniência de desenvolvimento e não deve sobrepor nada lá.
	if environment != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("ℹ️  Info: Ficheiro .env não encontrado ou não pôde ser carregado. Lendo variáveis de ambiente do sistema.")
		}
	}

	return &Config{
		// Server
		Port:        getEnvWithDefault("PORT", "8080"),
		Environment: environment,

		// Firebase
		FirebaseCredentialsPath: os.Getenv("FIREBASE_CREDENTIALS_PATH"),

		// Dispatcher
		DispatchIntervalMinutes: getEnvInt("DISPATCH_INTERVAL_MINUTES", 5),
		WindowMarginMinutes:     getEnvInt("WINDOW_MARGIN_MINUTES", 1),
		EnableEmailReminders:    getEnvBool("ENABLE_EMAIL_REMINDERS", true),
		EnablePushReminders:     getEnvBool("ENABLE_PUSH_REMINDERS", true),

		// Subscription gate
		EnableSubscriptionGate: getEnvBool("ENABLE_SUBSCRIPTION_GATE", false),
		SubscriptionAPIURL:     getEnvWithDefault("SUBSCRIPTION_API_URL", "https://api.revenuecat.com/v1"),
		SubscriptionAPIKey:     os.Getenv("SUBSCRIPTION_API_KEY"),
		SubscriptionCacheTTL:   getEnvInt("SUBSCRIPTION_CACHE_TTL_MINUTES", 10),

		// SMTP
		SMTPHost:      getEnvWithDefault("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),
		SMTPUsername:  os.Getenv("SMTP_USERNAME"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		SMTPFromName:  getEnvWithDefault("SMTP_FROM_NAME", "Plenamente"),
		SMTPFromEmail: getEnvWithDefault("SMTP_FROM_EMAIL", "lembretes@plenamente.app"),
	}, nil
}

// DispatchInterval é a cadência da varredura como time.Duration.
func (c *Config) DispatchInterval() time.Duration {
	return time.Duration(c.DispatchIntervalMinutes) * time.Minute
}

// Window é a janela retroativa da varredura: intervalo + folga.
// Janela >= intervalo garante que nenhum instante cai entre duas execuções.
func (c *Config) Window() time.Duration {
	return time.Duration(c.DispatchIntervalMinutes+c.WindowMarginMinutes) * time.Minute
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// Validate valida se todas as configurações obrigatórias estão presentes.
func (c *Config) Validate() error {
	if c.FirebaseCredentialsPath == "" {
		return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}

	if c.DispatchIntervalMinutes <= 0 {
		return fmt.Errorf("DISPATCH_INTERVAL_MINUTES must be positive")
	}

	if c.WindowMarginMinutes < 0 {
		return fmt.Errorf("WINDOW_MARGIN_MINUTES must not be negative")
	}

	if c.EnableEmailReminders && (c.SMTPUsername == "" || c.SMTPPassword == "") {
		log.Println("⚠️  Lembretes por email habilitados mas credenciais SMTP não configuradas")
	}

	if c.EnableSubscriptionGate && c.SubscriptionAPIKey == "" {
		log.Println("⚠️  Gate de assinatura habilitado mas SUBSCRIPTION_API_KEY não configurada")
	}

	return nil
}
