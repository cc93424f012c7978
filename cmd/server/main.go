package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"markethub/internal/blob"
	"markethub/internal/config"
	"markethub/internal/db"
	"markethub/internal/handlers"
	"markethub/internal/middleware"
	"markethub/internal/repository"
	"markethub/internal/service"
	"markethub/internal/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		// In a container the .env file may be absent; variables come from
		// the environment directly.
		if !os.IsNotExist(err) {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	defer conn.Close()

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal("Invalid REDIS_URL: ", err)
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	var store blob.Store
	switch cfg.BlobBackend {
	case "gridfs":
		store, err = blob.NewGridFSStore(cfg.MongoURL, "markethub")
	default:
		store, err = blob.NewDiskStore(cfg.UploadDir)
	}
	if err != nil {
		log.Fatal("Failed to initialize blob storage: ", err)
	}

	r := setupRouter(cfg, conn, rdb, store)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

func setupRouter(cfg *config.Config, conn *sqlx.DB, rdb *redis.Client, store blob.Store) *gin.Engine {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	users := repository.NewUserRepository(conn)
	listings := repository.NewListingRepository(conn)
	files := repository.NewFileRepository(conn)
	verifications := repository.NewVerificationRepository(conn)
	messages := repository.NewMessageRepository(conn)
	applications := repository.NewApplicationRepository(conn)

	sessions := session.NewStore(&session.RedisKV{Client: rdb}, users, cfg.SessionTTL)

	userSvc := service.NewUserService(conn, users)
	listingSvc := service.NewListingService(conn, listings, files, users)
	fileSvc := service.NewFileService(conn, files, listings, store)
	verificationSvc := service.NewVerificationService(conn, verifications)
	messageSvc := service.NewMessageService(conn, messages, users, listings)
	applicationSvc := service.NewApplicationService(conn, applications, listings)

	secure := os.Getenv("GIN_MODE") == "release"
	authHandler := &handlers.AuthHandler{
		Users:        userSvc,
		Sessions:     sessions,
		CookieSecure: secure,
		CookieMaxAge: int(cfg.SessionTTL.Seconds()),
	}
	userHandler := &handlers.UserHandler{Users: userSvc}
	listingHandler := &handlers.ListingHandler{Listings: listingSvc}
	fileHandler := &handlers.FileHandler{Files: fileSvc, MaxUploadBytes: cfg.MaxUploadBytes}
	verificationHandler := &handlers.VerificationHandler{Verifications: verificationSvc}
	messageHandler := &handlers.MessageHandler{Messages: messageSvc}
	jobHandler := &handlers.JobHandler{Applications: applicationSvc}

	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(middleware.SafeLoggerMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMin))
	r.Use(middleware.MetricsMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(middleware.SessionMiddleware(sessions))
	{
		authHandler.RegisterRoutes(api)
		userHandler.RegisterPublic(api)
		listingHandler.RegisterPublic(api)
		fileHandler.RegisterPublic(api)
		jobHandler.RegisterPublic(api)
	}

	protected := api.Group("")
	protected.Use(middleware.RequireAuth())
	{
		userHandler.RegisterProtected(protected)
		listingHandler.RegisterProtected(protected)
		fileHandler.RegisterProtected(protected)
		verificationHandler.RegisterProtected(protected)
		messageHandler.RegisterProtected(protected)
		jobHandler.RegisterProtected(protected)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.RequireAuth(), middleware.RequireAdmin())
	{
		verificationHandler.RegisterAdmin(admin)
	}

	return r
}
