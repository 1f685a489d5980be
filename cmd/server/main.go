package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/skillforge/engine/internal/bank"
	"github.com/skillforge/engine/internal/config"
	"github.com/skillforge/engine/internal/database"
	"github.com/skillforge/engine/internal/progress"
	"github.com/skillforge/engine/internal/session"
)

func main() {
	cfg := config.Load()

	// Load questions; without them no session can start.
	questions, err := bank.Load(cfg.QuestionsPath)
	if err != nil {
		log.Fatalf("Failed to load questions: %v", err)
	}
	log.Printf("Loaded %d questions across %d topics", questions.Len(), len(questions.Topics()))

	// Initialize durable progress storage
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	progressService := progress.NewService(progress.NewStore(db))
	engine := session.NewEngine(questions, progressService, cfg.GameOverDelay, cfg.TickInterval)

	// Initialize handlers
	bankHandler := bank.NewHandler(questions)
	progressHandler := progress.NewHandler(progressService)
	sessionHandler := session.NewHandler(engine)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/topics", bankHandler.ListTopics).Methods("GET")

	api.HandleFunc("/progress", progressHandler.GetProgress).Methods("GET")
	api.HandleFunc("/progress/lives/refill", progressHandler.RefillLives).Methods("POST")
	api.HandleFunc("/progress/daily-goal", progressHandler.SetDailyGoal).Methods("POST")

	api.HandleFunc("/session/start", sessionHandler.Start).Methods("POST")
	api.HandleFunc("/session", sessionHandler.Current).Methods("GET")
	api.HandleFunc("/session/select", sessionHandler.SelectChoice).Methods("POST")
	api.HandleFunc("/session/submit", sessionHandler.SubmitAnswer).Methods("POST")
	api.HandleFunc("/session/advance", sessionHandler.Advance).Methods("POST")
	api.HandleFunc("/session/abort", sessionHandler.Abort).Methods("POST")
	api.HandleFunc("/session/finish", sessionHandler.Finish).Methods("POST")
	api.HandleFunc("/session/summary", sessionHandler.Summary).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	log.Printf("Server starting on :%s", cfg.ServerPort)
	if err := http.ListenAndServe(":"+cfg.ServerPort, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
