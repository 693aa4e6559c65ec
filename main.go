package main

import (
	"context"
	golog "log"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"animestream/config"
	"animestream/database"
	"animestream/episodes"
	"animestream/ffmpeg"
	"animestream/handlers"
	"animestream/pipeline"
	"animestream/publish"
	"animestream/storage"
	"animestream/thumbnail"
	"animestream/workspace"
)

const probeInterval = 60 * time.Second

func main() {

	initLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	episodes.Init(log)
	workspace.Init(log)
	thumbnail.Init(log)
	ffmpeg.Init(log)
	storage.Init(log)
	publish.Init(log)
	pipeline.Init(log)

	gormLogger := logger.New(
		golog.New(os.Stdout, "\r\n", golog.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,        // Ignore ErrRecordNotFound error for logger
			ParameterizedQueries:      true,        // Don't include params in the SQL log
			Colorful:                  false,       // Disable color
		},
	)

	// Initialize database
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Panicf("failed to connect to database: %v", err)
	}

	// Migrate the schema
	db.AutoMigrate(&episodes.Episode{})

	database.Init(db, log)
	defer database.Fini()

	// keep the metadata store connection supervised
	sqlDB, err := db.DB()
	if err != nil {
		log.Panicln("failed to retrieve database handle")
	}
	super := database.NewSupervisor(sqlDB.Ping, probeInterval, probeInterval)
	go super.Run()
	defer super.Stop()

	objects, err := storage.NewS3(context.Background(), cfg.Bucket, cfg.AssetBaseURL)
	if err != nil {
		log.Panicf("failed to initialize object storage: %v", err)
	}

	orch := pipeline.New(objects,
		ffmpeg.HLS{Timeout: cfg.TranscodeTimeout},
		workspace.NewManager(cfg.WorkDir))

	handlers.Init(log, orch)
	defer handlers.Fini()

	// Initialize Echo
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Routes
	e.POST("/upload", handlers.Upload)
	e.GET("/episodes", handlers.ListEpisodes)
	e.GET("/series/:series", handlers.EpisodesBySeries)
	e.PUT("/episodes/:series/:season/:episode", handlers.RenameEpisode)
	e.DELETE("/episodes/:series/:season/:episode", handlers.DeleteEpisode)

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
