package main

import (
	"context"
	"log"

	corecmd "github.com/DevTeady/EmiliaHikari/core/cmd"
	"github.com/DevTeady/EmiliaHikari/internal/app"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "configs/config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.LoadConfig(path)
		},
		Bootstrap: func(ctx context.Context, cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return app.Bootstrap(ctx, cfg.(*app.Config), app.Deps{})
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
