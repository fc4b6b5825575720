package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/frotalog/registro/internal/apiserver/database"
	"github.com/frotalog/registro/internal/apiserver/handler"
	"github.com/frotalog/registro/internal/apiserver/middleware"
	syncsvc "github.com/frotalog/registro/internal/apiserver/sync"
	"github.com/frotalog/registro/internal/auth/jwt"
	"github.com/frotalog/registro/internal/common/config"
	"github.com/frotalog/registro/pkg/logger"
	"github.com/frotalog/registro/pkg/metrics"
	"github.com/frotalog/registro/pkg/version"
)

var (
	configPath string

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of apiserver",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("apiserver version %s\n", version.Get())
		},
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with development fixtures",
		Run: func(cmd *cobra.Command, args []string) {
			seed()
		},
	}

	rootCmd = &cobra.Command{
		Use:   "apiserver",
		Short: "Launch-record sync API server",
		Long:  `apiserver serves the pull/push sync protocol for launch records, plus login and profile endpoints`,
		Run: func(cmd *cobra.Command, args []string) {
			run()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "conf", "apiserver.yaml", "path to configuration file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(seedCmd)
}

func loadDeps() (*config.APIServerConfig, *zap.Logger, database.Database) {
	cfg, cfgPath, err := config.LoadConfig[config.APIServerConfig](configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", cfgPath, err)
	}

	zlog, err := logger.NewLogger(&cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		zlog.Fatal("Failed to initialize database",
			zap.String("type", cfg.Database.Type),
			zap.Error(err))
	}

	return cfg, zlog, db
}

func seed() {
	_, zlog, db := loadDeps()
	defer db.Close()

	if err := database.Seed(context.Background(), db); err != nil {
		zlog.Fatal("Failed to seed database", zap.Error(err))
	}
	zlog.Info("Database seeded")
}

func run() {
	cfg, zlog, db := loadDeps()
	defer func() {
		_ = zlog.Sync()
	}()
	defer db.Close()

	jwtService, err := jwt.NewService(jwt.Config{
		SecretKey: cfg.JWT.SecretKey,
		Duration:  cfg.JWT.Duration,
	})
	if err != nil {
		zlog.Fatal("Failed to initialize JWT service", zap.Error(err))
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics)
	}

	syncService := syncsvc.NewService(db, zlog)
	h := handler.NewHandler(db, jwtService, syncService, m, zlog)

	zlog.Info("Starting apiserver",
		zap.String("version", version.Get()),
		zap.Int("port", cfg.Port))

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	if m != nil {
		r.Use(m.Middleware())
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	r.GET("/health", h.Health)
	r.POST("/auth/login", h.Login)

	authed := r.Group("/", middleware.JWTAuthMiddleware(jwtService))
	authed.GET("/users/profile", h.Profile)
	authed.GET("/sync/pull", h.Pull)
	authed.POST("/sync/push", h.Push)

	if err := r.Run(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		zlog.Fatal("Server terminated", zap.Error(err))
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
