package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arnavshah/autoscheduler-api/pkg/auth"
	"github.com/arnavshah/autoscheduler-api/pkg/config"
	"github.com/arnavshah/autoscheduler-api/pkg/database"
	"github.com/arnavshah/autoscheduler-api/pkg/handlers"
	"github.com/arnavshah/autoscheduler-api/pkg/logger"
)

var r *gin.Engine

func init() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	l, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	db, err := database.InitDB(cfg.Database, l)
	if err != nil {
		l.Fatal("init database", zap.Error(err))
	}

	authManager := auth.NewManager(cfg.Auth)
	if err := authManager.EnsureAdminExists(db, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword, l); err != nil {
		l.Error("ensure admin", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	r = handlers.NewRouter(handlers.New(db, authManager, cfg, l))
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
