package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/autoscheduler-api/pkg/auth"
	"github.com/arnavshah/autoscheduler-api/pkg/config"
	"github.com/arnavshah/autoscheduler-api/pkg/database"
	"github.com/arnavshah/autoscheduler-api/pkg/handlers"
	"github.com/arnavshah/autoscheduler-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	l, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = l.Sync() }()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.InitDB(cfg.Database, l)
	if err != nil {
		l.Fatal("init database", zap.Error(err))
	}

	authManager := auth.NewManager(cfg.Auth)
	if err := authManager.EnsureAdminExists(db, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, l); err != nil {
		l.Error("ensure admin", zap.Error(err))
	}

	h := handlers.New(db, authManager, cfg, l)
	r := handlers.NewRouter(h)

	addr := fmt.Sprintf(":%d", cfg.Port)
	l.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		l.Fatal("could not run server", zap.Error(err))
	}
}
