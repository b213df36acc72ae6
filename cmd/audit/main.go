package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/moysklad-audit/internal/application/check"
	"github.com/jhoicas/moysklad-audit/internal/bootstrap"
	"github.com/jhoicas/moysklad-audit/internal/interfaces/cli"
	"github.com/jhoicas/moysklad-audit/pkg/config"
	"github.com/jhoicas/moysklad-audit/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cargar configuración:", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var app *bootstrap.App
	root := cli.NewRootCmd(cli.Deps{
		Service: func() (*check.Service, error) {
			a, err := bootstrap.Build(ctx, cfg, log)
			if err != nil {
				return nil, err
			}
			app = a
			return a.Service, nil
		},
		JWT:           cfg.JWT,
		Location:      cfg.Audit.Location(),
		DefaultRegion: cfg.App.Region,
	})

	err = root.ExecuteContext(ctx)
	if app != nil {
		app.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Ошибка:", err)
		os.Exit(1)
	}
}
