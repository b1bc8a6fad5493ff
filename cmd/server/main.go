package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/contentpilot/backend/configs"
	"github.com/contentpilot/backend/internal/api/handlers"
	"github.com/contentpilot/backend/internal/api/middleware"
	job "github.com/contentpilot/backend/internal/jobs"
	"github.com/contentpilot/backend/internal/publisher"
	"github.com/contentpilot/backend/internal/queue"
	"github.com/contentpilot/backend/internal/repository"
	"github.com/contentpilot/backend/internal/service"
	"github.com/contentpilot/backend/internal/timeline"
	"github.com/contentpilot/backend/internal/workflow"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
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

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer rdb.Close()

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
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	contentRepo := repository.NewContentRepository(db)
	postRepo := repository.NewPostRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)

	registry := publisher.NewRegistry(cfg)
	workflowClient := workflow.NewClient(cfg.Workflow)
	enqueuer := queue.NewEnqueuer(client)
	locker := service.NewRedisLocker(rdb)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	mediaService := service.NewMediaService(*cfg)
	contentService := service.NewContentService(contentRepo, workflowClient)
	publishService := service.NewPublishService(db, postRepo, contentRepo, socialAccountRepo, enqueuer, locker)
	platformService := service.NewPlatformService(*cfg, socialAccountRepo, registry)

	timelineManager := timeline.NewManager()
	transcoderHandle := timeline.NewHandle(timeline.NewFFmpegLoader(cfg.Export.FFmpegBinary, cfg.Export.FFprobeBinary))

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)
	app.Get("/logout", auth.Logout)

	platform := handlers.NewPlatformHandler(*cfg, platformService)
	app.Get("/auth/:platform/callback", platform.CallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	api.Get("/auth/:platform", platform.AddSocialAccount)

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)

	content := handlers.NewContentHandler(contentService)
	api.Post("/content/generate", content.GenerateContent)
	api.Get("/content", content.ListContent)
	api.Post("/content/approve", content.ApproveContent)
	api.Post("/content/reject", content.RejectContent)
	api.Post("/content/regenerate-captions", content.RegenerateCaptions)
	api.Post("/content/regenerate-image", content.RegenerateImage)
	api.Post("/content/generate-audio", content.GenerateAudio)
	api.Post("/content/remove", content.RemoveContent)

	video := handlers.NewVideoHandler(workflowClient)
	api.Get("/videos/search", video.SearchVideos)
	api.Post("/videos/analyze", video.AnalyzeVideo)

	post := handlers.NewPostHandler(publishService)
	api.Post("/posts/publish", post.PublishContent)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/retry", post.RetryPost)
	api.Post("/posts/remove", post.RemovePost)

	// social accounts api routes
	api.Get("/accounts", platform.ListSocialAccounts)
	api.Get("/accounts/verify", platform.VerifySocialAccount)
	api.Post("/accounts/remove", platform.DisconnectSocialAccount)

	editor := handlers.NewEditorHandler(*cfg, timelineManager, transcoderHandle, mediaService)
	api.Post("/editor/sessions", editor.CreateSession)
	api.Get("/editor/sessions/:id", editor.SessionStatus)
	api.Post("/editor/sessions/:id/clips", editor.AddClip)
	api.Post("/editor/sessions/:id/trim", editor.TrimClip)
	api.Post("/editor/sessions/:id/reorder", editor.ReorderClips)
	api.Post("/editor/sessions/:id/remove-clip", editor.RemoveClip)
	api.Post("/editor/sessions/:id/export", editor.ExportSession)
	api.Post("/editor/sessions/:id/redo", editor.RedoSession)
	api.Post("/editor/sessions/:id/close", editor.CloseSession)

	// cron jobs
	accountVerifyJob := job.NewAccountVerifyJob(*cfg, socialAccountRepo, registry)

	// queue
	queueW := queue.NewQueue(*cfg, postRepo, contentRepo, socialAccountRepo, registry)

	c := cron.New()
	c.AddFunc("@every 00h10m00s", accountVerifyJob.Run)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

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
