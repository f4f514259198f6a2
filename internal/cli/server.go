package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codegaming-service/internal/app"
	"codegaming-service/internal/auth"
	"codegaming-service/internal/config"
	"codegaming-service/internal/domain"
	"codegaming-service/internal/infra/memory"
	pginfra "codegaming-service/internal/infra/postgres"
	redisinfra "codegaming-service/internal/infra/redis"
	transport "codegaming-service/internal/transport/http"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the play-session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	guestTTL := config.TTLDuration(cfg.Guests.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestionBank())
	if pool != nil {
		loader = pginfra.NewQuestionLoader(pool)
	}

	var questions app.QuestionRepository
	if redisClient != nil {
		questions = redisinfra.NewQuestionRepository(redisClient, loader, questionTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, questionTTL)
	}

	var guests app.GuestRepository
	if redisClient != nil {
		guests = redisinfra.NewGuestStore(redisClient, guestTTL)
	} else {
		guests = memory.NewGuestStore(guestTTL)
	}

	var leaderboard app.LeaderboardRepository
	if redisClient != nil {
		leaderboard = redisinfra.NewLeaderboard(redisClient)
	} else {
		leaderboard = memory.NewLeaderboard()
	}

	var sessions app.SessionStore
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	opts := []app.ServiceOption{app.WithModes(cfg.Modes())}
	if pool != nil {
		opts = append(opts, app.WithResultStore(pginfra.NewResultStore(pool)))
	}
	service := app.NewSessionService(sessions, questions, guests, leaderboard, opts...)

	var users auth.UserRepository = memory.NewUserRepository()
	if pool != nil {
		users = pginfra.NewUserRepository(pool)
	}
	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = os.Getenv("JWT_SECRET")
	}
	authService := auth.NewService(users, jwtSecret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))

	handler := transport.NewHandler(service, authService, cfg.Leaderboard.PageSize)
	wsHandler := transport.NewWSHandler(service)

	router := mux.NewRouter()
	handler.Routes(router)
	router.HandleFunc("/ws/leaderboard", wsHandler.ServeWS)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	allowedOrigins := cfg.Server.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Guest-Session", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      corsMiddleware.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting codegaming service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestionBank provides a minimal bank per difficulty; swap in the
// Postgres loader for the real content.
func sampleQuestionBank() map[string][]domain.Question {
	return map[string][]domain.Question{
		"beginner": {
			{
				ID:         "b1",
				Prompt:     "Which HTML tag embeds a JavaScript file?",
				Type:       domain.QuestionMultipleChoice,
				Difficulty: "beginner",
				Choices: []domain.Choice{
					{ID: "b1a", Text: "<js>"},
					{ID: "b1b", Text: "<script>", Correct: true},
					{ID: "b1c", Text: "<code>"},
				},
				Explanation: "The <script> tag loads and runs JavaScript.",
			},
			{
				ID:             "b2",
				Prompt:         "What keyword declares a constant in JavaScript?",
				Type:           domain.QuestionFreeText,
				Difficulty:     "beginner",
				ExpectedAnswer: "const",
			},
		},
		"expert": {
			{
				ID:         "e1",
				Prompt:     "Which complexity class describes binary search?",
				Type:       domain.QuestionMultipleChoice,
				Difficulty: "expert",
				Choices: []domain.Choice{
					{ID: "e1a", Text: "O(n)"},
					{ID: "e1b", Text: "O(log n)", Correct: true},
					{ID: "e1c", Text: "O(n log n)"},
				},
			},
			{
				ID:             "e2",
				Prompt:         "Complete the snippet so it prints each array item: arr.____(item => console.log(item))",
				Type:           domain.QuestionCode,
				Difficulty:     "expert",
				ExpectedAnswer: "forEach",
				StarterCode:    "arr.____(item => console.log(item))",
			},
		},
	}
}
