package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"coach-gamification-system/handlers"
	"coach-gamification-system/middleware"
	"coach-gamification-system/models"
	"coach-gamification-system/services"
	"coach-gamification-system/utils"
	"coach-gamification-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB — badge icons only, nothing bigger passes through
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.MemberProfile{},
		&models.ScoreEvent{},
		&models.ScoreTotal{},
		&models.LeaguePeriod{},
		&models.LeagueMembership{},
		&models.LeagueOutcome{},
		&models.BadgeType{},
		&models.UserBadgeProgress{},
		&models.UserStats{},
		&models.Notification{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// Level bands are validated here, once — a broken progression table must
	// never surface at runtime.
	levelsCfg, err := services.LoadLevels(os.Getenv("LEVELS_CONFIG_PATH"))
	if err != nil {
		log.Fatal("failed to load level config:", err)
	}
	levelResolver, err := services.NewLevelResolver(levelsCfg)
	if err != nil {
		log.Fatal("invalid level config:", err)
	}

	badgeCatalog, err := services.LoadBadgeCatalog(os.Getenv("BADGES_CONFIG_PATH"))
	if err != nil {
		log.Fatal("failed to load badge config:", err)
	}

	periodDuration := services.DefaultPeriodDuration
	if hoursStr := os.Getenv("PERIOD_DURATION_HOURS"); hoursStr != "" {
		hours, err := strconv.Atoi(hoursStr)
		if err != nil || hours < 1 {
			log.Fatal("PERIOD_DURATION_HOURS must be a positive integer")
		}
		periodDuration = time.Duration(hours) * time.Hour
	}

	notificationService := services.NewNotificationService(db)
	badgeEngine := services.NewBadgeEngine(db, notificationService)
	if err := badgeEngine.SeedCatalog(badgeCatalog); err != nil {
		log.Fatal("failed to seed badge catalog:", err)
	}

	statsService := services.NewStatsService(db)
	statsService.Badges = badgeEngine

	leagueService := services.NewLeagueService(db, levelResolver, periodDuration)
	ledgerService := services.NewLedgerService(db, levelResolver, leagueService, statsService, badgeEngine)
	rankerService := services.NewRankerService(db, levelResolver, leagueService)
	rolloverService := services.NewRolloverService(db, levelResolver, leagueService, rankerService, ledgerService, statsService, notificationService)
	summaryService := services.NewSummaryService(ledgerService, levelResolver, leagueService, rankerService, badgeEngine)

	// --- External collaborators ---
	profileSyncURL := os.Getenv("PROFILE_SYNC_URL")
	if profileSyncURL == "" {
		log.Fatal("PROFILE_SYNC_URL environment variable not set")
	}
	serviceToken := os.Getenv("GAMIFICATION_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("GAMIFICATION_SERVICE_TOKEN environment variable not set")
	}
	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		log.Fatal("AUTH_SERVICE_URL environment variable not set")
	}
	authClient := services.NewAuthServiceClient(authServiceURL, serviceToken)

	profileSyncWorker := workers.NewProfileSyncWorker(db, profileSyncURL, "/api/v1/public/profiles", serviceToken)

	activityClient := workers.NewActivityIngestClient(ledgerService, statsService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go workers.PollActivities(ctx, activityClient, 30*time.Second)

	go func() {
		log.Println("Starting Profile Sync Worker...")
		profileSyncWorker.Start(ctx)
	}()

	rolloverService.StartRolloverScheduler()

	// ✅ Setup routes — enforced Gateway auth + consistent /s/ prefix
	handlers.SetupGamificationRoutes(app, ledgerService, summaryService, badgeEngine, statsService, notificationService, authClient)
	handlers.SetupLeaderboardRoutes(app, db, levelResolver, leagueService, rankerService)
	handlers.SetupAdminRoutes(app, ledgerService, badgeEngine, rolloverService)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5300"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Profile Sync Worker running")
	log.Println("✅ Activity ingest polling running (every 30s)")
	log.Println("✅ League rollover scheduler running (every minute)")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
