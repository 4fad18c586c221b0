package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/webstorehq/storeadmin/config"
	"github.com/webstorehq/storeadmin/internal/adminapi"
	"github.com/webstorehq/storeadmin/internal/app"
	"github.com/webstorehq/storeadmin/internal/catalog"
	"github.com/webstorehq/storeadmin/internal/storage"
	"github.com/webstorehq/storeadmin/internal/webserver"
	"go.uber.org/zap"
)

var (
	cfile    = flag.String("c", "storeadmin.yml", "config file")
	initdb   = flag.Bool("initdb", false, "drop and recreate the database schema, then exit")
	showVer  = flag.Bool("v", false, "show version and exit")
	buildVer = "dev"
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(buildVer)
		return
	}

	cfg := config.LoadConfig(*cfile)

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.S().Info("database initialized")
		return
	}

	gateway, err := storage.NewGateway(context.Background(), cfg.Storage)
	if err != nil {
		zap.S().Fatalf("object store setup failed: %v", err)
	}

	service := catalog.NewGormService(application.DB(), gateway, application.Bus(), catalog.Options{
		MaxProductImages: cfg.Catalog.MaxProductImages,
		DeleteTimeout:    time.Duration(cfg.Catalog.DeleteTimeout) * time.Second,
		OrphanGrace:      time.Duration(cfg.Catalog.OrphanGraceMinutes) * time.Minute,
	})
	application.AttachService(service)

	webserver.Init(cfg)
	adminapi.Init(service, gateway)
	adminapi.RegisterRoutes()

	errchan := make(chan error, 1)
	go func() {
		errchan <- webserver.Listen()
	}()

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errchan:
		zap.S().Errorf("web server stopped: %v", err)
	case sig := <-sigchan:
		zap.S().Infof("received signal %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := webserver.Shutdown(ctx); err != nil {
		zap.S().Errorf("web server shutdown: %v", err)
	}
}
