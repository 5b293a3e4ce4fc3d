package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"safecircle/config"
	"safecircle/database"
	"safecircle/emergency"
	"safecircle/handlers"
	"safecircle/logger"
	"safecircle/metrics"
	"safecircle/middleware"
	"safecircle/store"
	"safecircle/websocket"
)

func main() {
	config.Load()

	lg, err := logger.Init(config.Cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer lg.Sync()

	st, err := openStore(config.Cfg.StoreDriver)
	if err != nil {
		lg.Fatal("open store", zap.String("driver", config.Cfg.StoreDriver), zap.Error(err))
	}
	defer database.Close()

	hub := websocket.NewHub()
	svc := emergency.NewService(st, hub, emergency.Options{
		RadiusKm:     config.Cfg.ProximityRadiusKm,
		CloseDelay:   config.Cfg.RoomCloseDelay,
		NameCacheTTL: config.Cfg.NameCacheTTL,
	})
	hub.SetRoomService(svc)

	sweeper := emergency.NewSweeper(svc, config.Cfg.SweepSchedule)
	if err := sweeper.Start(); err != nil {
		lg.Fatal("start room sweeper", zap.Error(err))
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.ZapLogger())
	r.Use(middleware.CORSMiddleware(config.Cfg.CORSOrigins))
	r.Use(metrics.Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", metrics.Handler())
	r.GET("/ws", hub.HandleWebSocket)
	r.GET("/ws/dashboard", middleware.DashboardKey(config.Cfg.DashboardKeyHash), hub.HandleDashboard)

	handlers.New(svc).Register(r, middleware.AuthMiddleware())

	srv := &http.Server{Addr: config.Cfg.ServerAddr, Handler: r}
	go func() {
		lg.Info("server starting", zap.String("addr", config.Cfg.ServerAddr), zap.String("store", config.Cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lg.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Error("server shutdown", zap.Error(err))
	}
	sweeper.Stop()
	svc.Stop()
}

func openStore(driver string) (store.Store, error) {
	switch driver {
	case "memory":
		return store.NewMemory(), nil
	case "mysql":
		if err := database.Connect(); err != nil {
			return nil, err
		}
		if err := database.CreateTables(); err != nil {
			return nil, err
		}
		return store.NewMySQL(database.DB), nil
	default:
		return nil, errors.New("unknown store driver " + driver)
	}
}
