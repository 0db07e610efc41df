package main

import (
	"context"
	"log"

	"gapfill/adapters/api"
	"gapfill/internal/config"
	"gapfill/internal/container"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(cfg.Server.GinMode)

	c, err := container.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependencies: %v", err)
	}
	defer c.Close()

	server := api.NewServer(c.Imputation, c.Logger)
	if err := server.Start(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
