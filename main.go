package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"marbleparty/config"
	"marbleparty/logging"
	"marbleparty/server"
)

// 房间服务入口：/party/{room} 为 WebSocket 接入，每个房间一个事件循环
func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to marbleparty.yaml")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.LoadServerConfig(configPath)
	if err != nil {
		panic(err)
	}
	if err := logging.Init(cfg.Log.Options()); err != nil {
		panic(err)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rm := server.NewRoomManager(ctx, cfg)
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: rm.Routes()}

	go func() {
		logging.Log.Infow("party server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Log.Fatalw("listen", "error", err)
		}
	}()

	<-ctx.Done()
	logging.Log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Log.Errorw("shutdown error", "error", err)
	}
}
