// Command server runs the user directory HTTP service.
//
// @title           User Directory Service
// @version         1.0
// @description     Identity and access service: credential login, bearer tokens with role claims, and role/ownership-based authorization over a user directory.
// @BasePath        /
//
// @securityDefinitions.apikey BearerAuth
// @in   header
// @name Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xapps/user-management-service/internal/api"
	"github.com/xapps/user-management-service/internal/core/service"
	"github.com/xapps/user-management-service/internal/infrastructure/config"
	mongodb "github.com/xapps/user-management-service/internal/infrastructure/db/mongo"
	redisdb "github.com/xapps/user-management-service/internal/infrastructure/db/redis"
	"github.com/xapps/user-management-service/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	userRepo := mongodb.NewUserRepository(db)
	roleRepo := redisdb.NewCachedRoleRepository(mongodb.NewRoleRepository(db), rdb)
	userRoleRepo := mongodb.NewUserRoleRepository(db)

	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("index creation failed")
	}
	if err := userRoleRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("index creation failed")
	}

	seeder := service.NewSeeder(userRepo, roleRepo, userRoleRepo, cfg.Seed.RootPassword, log)
	if err := seeder.Seed(ctx); err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}

	tokens := service.NewTokenService(cfg.JWT.Secret, time.Duration(cfg.JWT.TTLSeconds)*time.Second)
	users := service.NewUserService(userRepo, roleRepo, userRoleRepo, tokens, log)

	e := api.NewRouter(users, tokens, db, rdb, log)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()
	log.Info().Str("port", cfg.Port).Msg("user directory service started")

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
