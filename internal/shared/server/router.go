package server

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"georepute-backend/internal/projects"
	"georepute-backend/internal/queue"
	"georepute-backend/internal/runs"
	"georepute-backend/internal/shared/config"
	"georepute-backend/internal/shared/server/middleware"
	"georepute-backend/internal/shared/server/respond"
	"georepute-backend/internal/shared/storage/db"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	// Dependencies
	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		dbConn, err := db.Connect(context.Background(), cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			log.Printf("failed to connect database, falling back to memory: %v", err)
		} else {
			if err := db.RunMigrations(context.Background(), dbConn); err != nil {
				log.Printf("failed to run migrations, falling back to memory: %v", err)
				dbConn = nil
			}
		}
		sqlDB = dbConn
	}

	var projectRepo projects.Repo
	var runRepo runs.Repo
	if sqlDB != nil {
		projectRepo = &projects.PGRepo{DB: sqlDB}
		runRepo = &runs.PGRepo{DB: sqlDB}
	} else {
		projectRepo = projects.NewMemoryRepo()
		runRepo = runs.NewMemoryRepo()
	}

	var chainer runs.Chainer
	if cfg.ChainQueueURL != "" {
		queueClient, err := queue.NewSQSClient(context.Background(), cfg.ChainQueueURL)
		if err != nil {
			log.Printf("failed to build queue client, batches will run inline: %v", err)
		} else {
			chainer = &runs.QueueChainer{Queue: queueClient}
		}
	}

	runSvc := runs.NewService(cfg, runRepo, projectRepo, chainer)
	runHandler := runs.NewHandler(runSvc)
	projectHandler := projects.NewHandler(projectRepo)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	projectHandler.RegisterRoutes(api)
	runHandler.RegisterRoutes(api)

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
