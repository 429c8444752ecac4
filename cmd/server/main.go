package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/viant/afs"

	"github.com/matthewbaird/uibuilder/internal/aigen"
	"github.com/matthewbaird/uibuilder/internal/config"
	"github.com/matthewbaird/uibuilder/internal/eventbus"
	"github.com/matthewbaird/uibuilder/internal/preview"
	"github.com/matthewbaird/uibuilder/internal/registry"
	"github.com/matthewbaird/uibuilder/internal/server"
	"github.com/matthewbaird/uibuilder/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// .env is optional; the process environment always wins.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("loading .env: %v", err)
	}

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	docs, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer closeStore()
	log.Printf("document store: %s", cfg.StoreDriver)

	reg, err := registry.NewDefault()
	if err != nil {
		log.Fatalf("loading component catalog: %v", err)
	}

	bus := eventbus.New(256)
	bus.Subscribe("log", eventbus.NewLogConsumer())
	bus.Start(ctx)
	defer bus.Stop()

	srvCfg := server.Config{
		Address:      cfg.ServerAddress,
		Registry:     reg,
		Store:        docs,
		Sessions:     preview.NewManager(cfg.PreviewMaxAge, cfg.PreviewIdleTimeout),
		VerifySyntax: cfg.VerifySyntax,
		Bus:          bus,
	}
	if cfg.OpenAIKey != "" {
		srvCfg.AI = aigen.NewOpenAIGenerator(cfg.OpenAIKey, cfg.OpenAIModel, reg)
	}

	if err := server.Run(ctx, srvCfg); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	switch cfg.StoreDriver {
	case "sqlite":
		s, err := store.OpenSQLite(ctx, cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "memory":
		return store.NewMemoryStore(), func() {}, nil
	default:
		return store.NewFileStore(afs.New(), cfg.StoreURL), func() {}, nil
	}
}
