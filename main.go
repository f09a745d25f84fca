package main

import (
	"context"
	"errors"
	"filerelay/config"
	"github.com/allegro/bigcache/v3"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	bigCacheStore "github.com/eko/gocache/store/bigcache/v4"
	"github.com/sirupsen/logrus"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	setupLogging(cfg.Log)

	var records *RecordStore
	if cfg.Cache.Activated {
		ttl := time.Duration(cfg.Cache.Time) * time.Second
		cacheClient, err := bigcache.New(context.Background(), bigcache.DefaultConfig(ttl))
		if err != nil {
			panic(err)
		}
		cacheStore := bigCacheStore.NewBigcache(cacheClient)
		records = NewRecordStore(marshaler.New(cache.New[any](cacheStore)), ttl)
	}

	registry := NewDefaultRegistry(&cfg)
	relay := NewRelay(registry, cfg.Transfer.TimeoutDuration())

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: NewRouter(cfg, relay, records),
	}
	go func() {
		logrus.Infof("Listening on %s, providers %v", srv.Addr, registry.Tags())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalln("Error starting server", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorln("Error shutting down server", err)
	}
}

func NewDefaultRegistry(cfg *config.Config) *Registry {
	registry := NewRegistry()
	registry.Register(providerAzure, NewAzureStoreFactory(cfg))
	registry.Register(providerGCS, NewGCSStoreFactory(cfg))
	registry.Register(providerS3, NewS3StoreFactory(cfg))
	registry.Register(providerMinio, NewMinioStoreFactory(cfg))
	return registry
}

func setupLogging(cfg config.Log) {
	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.Warnf("Invalid log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
