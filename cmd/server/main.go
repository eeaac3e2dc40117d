package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"familyroom/internal/config"
	"familyroom/internal/family"
	"familyroom/internal/logging"
	"familyroom/internal/push"
	"familyroom/internal/relay"
	"familyroom/internal/server"
	"familyroom/internal/store"
)

func main() {
	logger := logging.Init()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("config load failed", slog.String("path", configPath), slog.Any("err", err))
		os.Exit(1)
	}

	st := store.NewMemory()

	var gateway push.Gateway = push.NewLogGateway(logger)
	if cfg.PushEndpoint != "" {
		gateway = push.NewWebhookGateway(cfg.PushEndpoint)
	}

	fam := family.NewService(st, gateway, cfg.RolePair(), logger)

	roles := relay.RolePair(cfg.RolePair())
	room := relay.NewRoom(cfg.RoomName, roles)
	registry := relay.NewRegistry(roles)
	hub := relay.NewHub(room, registry, logger)
	go hub.Run(context.Background())

	api := server.New(hub, fam, cfg.HistoryLimit, cfg.CORSOrigins, logger)

	logger.Info("starting server",
		slog.String("listen", cfg.Listen),
		slog.String("room", cfg.RoomName))
	if err := http.ListenAndServe(cfg.Listen, api.Routes()); err != nil {
		logger.Error("server stopped", slog.Any("err", err))
		os.Exit(1)
	}
}
