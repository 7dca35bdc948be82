package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"studybuddy/config"
	"studybuddy/handlers"
	"studybuddy/services"
	"studybuddy/services/agent"
	"studybuddy/store"

	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()

	persona, err := config.LoadPersona(cfg.AgentConfigPath)
	if err != nil {
		log.Fatalf("Failed to load agent persona: %v", err)
	}

	generator, err := buildGenerator(cfg, persona)
	if err != nil {
		log.Fatalf("Failed to initialize generator: %v", err)
	}

	sessionRepo := store.NewMemorySessionRepository(cfg.SessionCapacity)

	sessionService := services.NewSessionService(sessionRepo)
	chatService := services.NewChatService(sessionRepo, generator, cfg.GenerationTimeout)
	rateGate := services.NewRateGate(cfg.RateLimit, cfg.RateWindow)

	chatHandler := handlers.NewChatHandler(sessionService, chatService, rateGate, persona.Name)

	if cfg.SessionIdleTTL > 0 {
		go evictionLoop(sessionRepo, cfg.SessionIdleTTL)
	}
	go cleanupLoop(rateGate, cfg.RateWindow)

	router := mux.NewRouter()

	router.Use(corsMiddleware)

	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("OPTIONS")

	chatHandler.RegisterRoutes(router)

	addr := ":" + cfg.Port
	fmt.Printf("%s server starting on port %s\n", persona.Name, cfg.Port)

	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func buildGenerator(cfg *config.Config, persona config.Persona) (agent.Generator, error) {
	switch cfg.Provider {
	case "anthropic":
		return agent.NewAnthropicGenerator(cfg.AnthropicAPIKey, persona.Model, persona.Instruction)
	case "openai":
		return agent.NewOpenAIGenerator(cfg.OpenAIAPIKey, persona.Model, persona.Instruction)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

func evictionLoop(repo *store.MemorySessionRepository, ttl time.Duration) {
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()

	for range ticker.C {
		if evicted := repo.EvictIdle(ttl); evicted > 0 {
			log.Printf("[INFO] Evicted %d idle sessions", evicted)
		}
	}
}

func cleanupLoop(gate *services.RateGate, window time.Duration) {
	ticker := time.NewTicker(window)
	defer ticker.Stop()

	for range ticker.C {
		gate.CleanupStale(2 * window)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Expose-Headers", "*")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
