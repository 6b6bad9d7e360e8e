package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/creatorhub/crosspost-api/configs"
	"github.com/creatorhub/crosspost-api/internal/api/handlers"
	"github.com/creatorhub/crosspost-api/internal/api/middleware"
	"github.com/creatorhub/crosspost-api/internal/dispatch"
	job "github.com/creatorhub/crosspost-api/internal/jobs"
	"github.com/creatorhub/crosspost-api/internal/queue"
	"github.com/creatorhub/crosspost-api/internal/repository"
	"github.com/creatorhub/crosspost-api/internal/service"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Api-Key",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	newsfeedRepo := repository.NewNewsfeedRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	scheduledRepo := repository.NewScheduledPostRepository(db)
	channelSettingsRepo := repository.NewChannelSettingsRepository(db)
	historyRepo := repository.NewDispatchHistoryRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)

	storageService := service.NewStorageService(*cfg)
	channelService := service.NewChannelService(channelSettingsRepo, cfg.SecretKey)
	dispatcher := dispatch.NewDispatcher(cfg, channelService, historyRepo)
	newsfeedService := service.NewNewsfeedService(newsfeedRepo, storageService, dispatcher)
	slotService := service.NewSlotService(slotRepo, scheduledRepo)
	enqueuer := queue.NewEnqueuer(client)
	scheduleService := service.NewScheduleService(scheduledRepo, newsfeedRepo, slotService, newsfeedService, dispatcher, enqueuer)
	keysService := service.NewKeysService(apiKeyRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, keysService)

	// public newsfeed, no auth
	newsfeed := handlers.NewNewsfeedHandler(newsfeedService, historyRepo)
	app.Get("/tenants/:tenantId/newsfeed", newsfeed.ListPublished)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	tenant := api.Group("/tenants/:tenantId")
	tenant.Use(authMiddleware.TenantScope())
	admin := authMiddleware.RequireAdmin()

	tenant.Get("/newsfeed/posts", newsfeed.ListPosts)
	tenant.Get("/newsfeed/posts/:id", newsfeed.GetPost)
	tenant.Get("/newsfeed/posts/:id/history", newsfeed.DispatchHistory)
	tenant.Post("/newsfeed/posts", admin, newsfeed.CreatePost)
	tenant.Put("/newsfeed/posts/:id", admin, newsfeed.UpdatePost)
	tenant.Delete("/newsfeed/posts/:id", admin, newsfeed.RemovePost)
	tenant.Post("/newsfeed/media", admin, newsfeed.UploadMedia)
	tenant.Post("/newsfeed/media/upload-url", admin, newsfeed.CreateUploadURL)

	slots := handlers.NewSlotsHandler(slotService)
	tenant.Get("/newsfeed/slots", slots.GetSlots)
	tenant.Put("/newsfeed/slots", admin, slots.UpdateSlots)
	tenant.Get("/newsfeed/slots/next", slots.NextSlot)

	schedule := handlers.NewScheduleHandler(scheduleService)
	tenant.Get("/newsfeed/schedule", schedule.ListSchedules)
	tenant.Get("/newsfeed/schedule/:id", schedule.GetSchedule)
	tenant.Post("/newsfeed/schedule", admin, schedule.CreateSchedule)
	tenant.Put("/newsfeed/schedule/:id", admin, schedule.UpdateSchedule)
	tenant.Delete("/newsfeed/schedule/:id", admin, schedule.CancelSchedule)

	channels := handlers.NewChannelsHandler(channelService, dispatcher)
	tenant.Get("/channels/enabled", channels.GetEnabled)
	tenant.Get("/channels/:channel/settings", admin, channels.GetSettings)
	tenant.Put("/channels/:channel/settings", admin, channels.UpdateSettings)
	tenant.Post("/channels/:channel/test", admin, channels.TestSend)

	apiKeys := handlers.NewKeysHandler(keysService)
	tenant.Post("/api_key/new", admin, apiKeys.CreateKey)
	tenant.Get("/api_key/list", admin, apiKeys.ListKeys)
	tenant.Post("/api_key/remove", admin, apiKeys.RemoveKey)

	// cron jobs
	sweepJob := job.NewSweepJob(scheduleService)

	//queue
	queueW := queue.NewQueue(scheduleService)

	c := cron.New()
	c.AddFunc(cfg.SweepSpec, sweepJob.PromoteDue)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeSchedulePromote, queueW.HandleSchedulePromoteTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(cfg.ListenAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on %s", cfg.ListenAddr)

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
