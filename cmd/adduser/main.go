package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/farebook/internal/config"
	"github.com/mamadbah2/farebook/internal/domain/models"
	"github.com/mamadbah2/farebook/internal/repository/sheets"
	authsvc "github.com/mamadbah2/farebook/internal/service/auth"
	"github.com/mamadbah2/farebook/pkg/logger"
)

// adduser seeds an account into the Users sheet. The first admin has to be
// created this way since POST /api/users already requires one.
func main() {
	var (
		envFile  = flag.String("env", "", "optional .env file to load")
		username = flag.String("username", "", "login name")
		name     = flag.String("name", "", "display name")
		role     = flag.String("role", string(models.RoleDriver), "driver, manager or admin")
		phone    = flag.String("phone", "", "WhatsApp number")
		password = flag.String("password", os.Getenv("FAREBOOK_PASSWORD"), "password (defaults to $FAREBOOK_PASSWORD)")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Must(logger.New(cfg.Server.LogLevel))
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, log.Named("repo.sheets"))
	if err != nil {
		log.Fatal("failed to init sheets repository", zap.Error(err))
	}

	svc := authsvc.NewService(sheets.NewUserStore(repo, log.Named("repo.users")), cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, log.Named("svc.auth"))
	user, err := svc.Register(ctx, models.User{
		Username: *username,
		Name:     *name,
		Role:     models.Role(*role),
		Phone:    *phone,
	}, *password)
	if err != nil {
		log.Fatal("failed to add user", zap.Error(err))
	}

	fmt.Printf("added %s (%s)\n", user.Username, user.Role)
}
