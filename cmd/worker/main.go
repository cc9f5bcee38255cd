package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/themxgroup/launchpad/internal/config"
	"github.com/themxgroup/launchpad/internal/ingest"
	"github.com/themxgroup/launchpad/internal/llm"
	"github.com/themxgroup/launchpad/internal/llmutil"
	"github.com/themxgroup/launchpad/internal/logging"
	"github.com/themxgroup/launchpad/internal/secrets"
	temporalmod "github.com/themxgroup/launchpad/internal/temporal"
	"github.com/themxgroup/launchpad/internal/vector"

	temporalclient "go.temporal.io/sdk/client"
)

func main() {
	configPath := "configs/launchpad.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	factory := llm.NewFactory()
	llmutil.RegisterDefaultProviders(factory)

	mgr, err := secrets.NewManager(secrets.Config{
		Provider: cfg.Secrets.Provider,
		Path:     cfg.Secrets.Path,
		Vault: &secrets.VaultConfig{
			Address:    cfg.Secrets.VaultAddr,
			Token:      cfg.Secrets.VaultToken,
			MountPath:  cfg.Secrets.VaultMount,
			SecretPath: cfg.Secrets.VaultPath,
		},
	})
	if err != nil {
		log.Fatalf("secrets: %v", err)
	}

	embedCfg := llm.DefaultProviderConfig()
	resolved := cfg.LLM.ResolveEmbedder()
	if resolved.APIKey == "" {
		resolved.APIKey = mgr.GetOrDefault(context.Background(), secrets.KeyEmbedAPIKey, "")
	}
	if resolved.APIKey == "" {
		resolved.APIKey = mgr.GetOrDefault(context.Background(), secrets.KeyLLMAPIKey, "")
	}
	embedCfg.Provider = resolved.Provider
	embedCfg.APIKey = resolved.APIKey
	embedCfg.Model = resolved.Model
	embedCfg.BaseURL = resolved.BaseURL
	embedCfg.EmbedModel = resolved.EmbedModel
	embedCfg.RequestsPerMinute = resolved.RequestsPerMinute
	embedCfg.TokensPerMinute = resolved.TokensPerMinute

	embedder, err := factory.Create(embedCfg)
	if err != nil {
		log.Fatalf("creating embedding provider: %v", err)
	}

	ctx := context.Background()
	store, err := vector.NewQdrant(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection, cfg.Vector.Dimension)
	if err != nil {
		log.Fatalf("vector store: %v", err)
	}
	defer store.Close()

	temporalmod.SetDependencies(&temporalmod.Dependencies{
		Pipeline: ingest.New(embedder, store, ingest.Config{
			ChunkSize:    cfg.Ingest.ChunkSize,
			ChunkOverlap: cfg.Ingest.ChunkOverlap,
			EmbedBatch:   cfg.Ingest.EmbedBatch,
		}, logger),
	})

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	fmt.Printf("Worker started on task queue: %s\n", cfg.Temporal.TaskQueue)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	w.Stop()
	fmt.Println("Worker stopped")
}
