package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/interflow/auth"
	"github.com/diewo77/interflow/internal/config"
	"github.com/diewo77/interflow/internal/db"
	"github.com/diewo77/interflow/internal/middleware"
	"github.com/diewo77/interflow/internal/models"
	"github.com/diewo77/interflow/internal/server"
	"github.com/diewo77/interflow/pkg/logger"
	"github.com/diewo77/interflow/view"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.Env)

	gdb, err := db.ConnectAndMigrate()
	if err != nil {
		log.Fatal().Err(err).Msg("connexion base de données impossible")
	}

	auth.SetUserVerifier(func(ctx context.Context, uid uint) bool {
		var count int64
		if err := gdb.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	view.SetLangResolver(middleware.LangFrom)
	view.SetThemeResolver(middleware.ThemeFrom)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(cfg, gdb, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("serveur démarré")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("serveur arrêté")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("arrêt en cours")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("arrêt forcé")
	}
	closeDB(gdb)
	log.Info().Msg("serveur arrêté proprement")
}

func closeDB(gdb *gorm.DB) {
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
