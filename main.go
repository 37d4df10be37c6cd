package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"plenamente/internal/config"
	"plenamente/internal/dispatch"
	"plenamente/internal/email"
	"plenamente/internal/push"
	"plenamente/internal/store"
	"plenamente/internal/subscription"
	"plenamente/internal/workers"

	firebase "firebase.google.com/go/v4"
	"github.com/gorilla/mux"
	"google.golang.org/api/option"
)

var (
	startTime       time.Time
	serverLogs      []string
	logsMutex       sync.RWMutex
	emailDispatcher *dispatch.Dispatcher
	pushDispatcher  *dispatch.Dispatcher
	workerManager   *workers.WorkerManager
)

const maxLogs = 100

type logWriter struct{}

func (lw logWriter) Write(p []byte) (n int, err error) {
	logsMutex.Lock()
	defer logsMutex.Unlock()

	msg := string(p)
	if len(msg) > 0 && msg[len(msg)-1] == '\n' {
		msg = msg[:len(msg)-1]
	}

	timestamp := time.Now().Format("15:04:05")
	logEntry := fmt.Sprintf("[%s] %s", timestamp, msg)

	serverLogs = append(serverLogs, logEntry)
	if len(serverLogs) > maxLogs {
		serverLogs = serverLogs[1:]
	}

	// Imprimir no console também
	fmt.Println(logEntry)

	return len(p), nil
}

func main() {
	log.SetFlags(0)
	log.SetOutput(logWriter{})

	startTime = time.Now()
	log.Println("🚀 Iniciando motor de lembretes Plenamente...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Erro config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Config inválida: %v", err)
	}
	log.Printf("✅ Configuração carregada (ambiente: %s)", cfg.Environment)

	ctx := context.Background()

	opt := option.WithCredentialsFile(cfg.FirebaseCredentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		log.Fatalf("❌ Erro ao inicializar Firebase: %v", err)
	}

	fsClient, err := app.Firestore(ctx)
	if err != nil {
		log.Fatalf("❌ Erro ao obter cliente Firestore: %v", err)
	}
	defer fsClient.Close()

	authClient, err := app.Auth(ctx)
	if err != nil {
		log.Fatalf("❌ Erro ao obter cliente Auth: %v", err)
	}

	msgClient, err := app.Messaging(ctx)
	if err != nil {
		log.Fatalf("❌ Erro ao obter cliente Messaging: %v", err)
	}
	log.Println("✅ Firebase inicializado com sucesso")

	st := store.New(fsClient)
	directory := store.NewDirectory(authClient)
	pushService := push.NewFirebaseService(msgClient)

	// Gate de assinatura é opcional; desligado, todo usuário elegível
	// pelas flags de preferência recebe lembretes.
	var gate dispatch.Gate
	if cfg.EnableSubscriptionGate {
		gate = subscription.NewService(
			cfg.SubscriptionAPIURL,
			cfg.SubscriptionAPIKey,
			time.Duration(cfg.SubscriptionCacheTTL)*time.Minute,
		)
		log.Println("✅ Gate de assinatura habilitado")
	}

	wm := workers.NewWorkerManager()
	workerManager = wm

	// Dois dispatchers independentes, um por canal, compartilhando a mesma
	// lógica de seleção; só a entrega difere.
	if cfg.EnableEmailReminders {
		emailService, err := email.NewEmailService(cfg)
		if err != nil {
			log.Printf("⚠️ Lembretes por email desabilitados: %v", err)
		} else {
			emailDispatcher = dispatch.NewDispatcher(
				st, st,
				dispatch.NewEmailChannel(directory, emailService),
				gate,
				cfg.DispatchInterval(), cfg.Window(),
			)
			wm.RegisterWorker(emailDispatcher)
		}
	}

	if cfg.EnablePushReminders {
		pushDispatcher = dispatch.NewDispatcher(
			st, st,
			dispatch.NewPushChannel(st, pushService),
			gate,
			cfg.DispatchInterval(), cfg.Window(),
		)
		wm.RegisterWorker(pushDispatcher)
	}

	wm.Start()

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", statsHandler).Methods("GET")
	api.HandleFunc("/health", healthCheckHandler).Methods("GET")
	api.HandleFunc("/logs", logsHandler).Methods("GET")

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: corsMiddleware(router),
	}

	go func() {
		log.Printf("✅ Servidor pronto na porta %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Erro HTTP: %v", err)
		}
	}()

	// Aguardar sinal de término e parar os workers antes de sair.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Encerrando...")
	wm.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Erro no shutdown HTTP: %v", err)
	}
}

// --- API HANDLERS ---

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept")

		// Responde preflight imediatamente
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func statsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	response := map[string]interface{}{
		"uptime":    formatDuration(time.Since(startTime)),
		"timestamp": time.Now().Unix(),
	}
	if emailDispatcher != nil {
		response["email"] = emailDispatcher.GetStats()
	}
	if pushDispatcher != nil {
		response["push"] = pushDispatcher.GetStats()
	}
	if workerManager != nil {
		response["workers"] = workerManager.GetStats()
	}

	json.NewEncoder(w).Encode(response)
}

func logsHandler(w http.ResponseWriter, r *http.Request) {
	logsMutex.RLock()
	defer logsMutex.RUnlock()

	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(map[string]interface{}{
		"logs": serverLogs,
	})
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
