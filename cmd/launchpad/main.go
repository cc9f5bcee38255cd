package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/themxgroup/launchpad/internal/answer"
	"github.com/themxgroup/launchpad/internal/config"
	"github.com/themxgroup/launchpad/internal/delivery"
	"github.com/themxgroup/launchpad/internal/ingest"
	"github.com/themxgroup/launchpad/internal/llm"
	"github.com/themxgroup/launchpad/internal/llmutil"
	"github.com/themxgroup/launchpad/internal/logging"
	"github.com/themxgroup/launchpad/internal/observability"
	"github.com/themxgroup/launchpad/internal/rfp"
	"github.com/themxgroup/launchpad/internal/secrets"
	"github.com/themxgroup/launchpad/internal/server"
	"github.com/themxgroup/launchpad/internal/vector"
)

const version = "0.1.0"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "launchpad",
		Short: "Marketing knowledge base with retrieval-augmented answering",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/launchpad.yaml", "Config file path")

	var docID string
	ingestCmd := &cobra.Command{
		Use:   "ingest <file-or-dir>",
		Short: "Ingest documents into the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), configPath, args[0], docID)
		},
	}
	ingestCmd.Flags().StringVar(&docID, "doc-id", "", "Document ID override (single file only)")

	var (
		maxPages int
		maxChars int
	)
	crawlCmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl a website and ingest its pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd.Context(), configPath, args[0], maxPages, maxChars)
		},
	}
	crawlCmd.Flags().IntVar(&maxPages, "max-pages", 0, "Page limit override")
	crawlCmd.Flags().IntVar(&maxChars, "max-chars", 0, "Total extracted character limit override")

	var (
		topK        int
		showContext bool
	)
	askCmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), configPath, args[0], topK, showContext)
		},
	}
	askCmd.Flags().IntVar(&topK, "top-k", 0, "Number of passages to retrieve")
	askCmd.Flags().BoolVar(&showContext, "show-context", false, "Print retrieved passages with the answer")

	var rfpEmail string
	rfpCmd := &cobra.Command{
		Use:   "rfp <file>",
		Short: "Break an RFP into questions and draft answers for each",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRFP(cmd.Context(), configPath, args[0], rfpEmail)
		},
	}
	rfpCmd.Flags().StringVar(&rfpEmail, "email", "", "Email the draft to this address")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the knowledge base over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List available LLM providers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available LLM providers:")
			fmt.Println()
			for name, url := range llm.KnownProviders {
				fmt.Printf("  %-14s %s\n", name, url)
			}
			fmt.Println("  custom         (set base_url to any OpenAI-compatible endpoint)")
			fmt.Println()
			fmt.Println("Configure in launchpad.yaml or via environment:")
			fmt.Println("  LAUNCHPAD_LLM_PROVIDER=openai")
			fmt.Println("  LAUNCHPAD_LLM_API_KEY=sk-...")
			fmt.Println("  LAUNCHPAD_LLM_MODEL=gpt-4o")
		},
	}

	rootCmd.AddCommand(ingestCmd, crawlCmd, askCmd, rfpCmd, serveCmd, providersCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds wired application components shared by the subcommands.
type app struct {
	cfg      *config.Config
	provider llm.Provider
	embedder llm.Provider
	store    *vector.QdrantStore
	tp       *observability.TracerProvider
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := resolveSecrets(ctx, cfg); err != nil {
		return nil, err
	}

	log := logging.New(logging.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})

	tracing := observability.DefaultTracingConfig()
	tracing.OTLPEndpoint = cfg.Tracing.Endpoint
	tp, err := observability.InitTracing(ctx, tracing)
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	if cfg.Tracing.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			if err := http.ListenAndServe(cfg.Tracing.MetricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	factory := llm.NewFactory()
	llmutil.RegisterDefaultProviders(factory)

	provider, err := factory.Create(providerConfig(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	embedder := provider
	if cfg.LLM.Embedder != nil {
		embedder, err = factory.Create(providerConfig(cfg.LLM.ResolveEmbedder()))
		if err != nil {
			return nil, fmt.Errorf("creating embedding provider: %w", err)
		}
	}

	store, err := vector.NewQdrant(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection, cfg.Vector.Dimension)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, provider: provider, embedder: embedder, store: store, tp: tp}, nil
}

func (a *app) close(ctx context.Context) {
	_ = a.store.Close()
	if a.tp != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = a.tp.Shutdown(shutdownCtx)
	}
}

// resolveSecrets fills credentials the config file left empty from the
// configured secrets backend. Inline values always win.
func resolveSecrets(ctx context.Context, cfg *config.Config) error {
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
		return fmt.Errorf("secrets: %w", err)
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = mgr.GetOrDefault(ctx, secrets.KeyLLMAPIKey, "")
	}
	if cfg.LLM.Embedder != nil && cfg.LLM.Embedder.APIKey == "" {
		cfg.LLM.Embedder.APIKey = mgr.GetOrDefault(ctx, secrets.KeyEmbedAPIKey, "")
	}
	if cfg.Server.WebhookSecret == "" {
		cfg.Server.WebhookSecret = mgr.GetOrDefault(ctx, secrets.KeyWebhookSecret, "")
	}
	if cfg.Delivery.AccessToken == "" {
		cfg.Delivery.AccessToken = mgr.GetOrDefault(ctx, secrets.KeyGmailAccessToken, "")
	}
	return nil
}

func providerConfig(c config.LLMConfig) llm.ProviderConfig {
	pc := llm.DefaultProviderConfig()
	pc.Provider = c.Provider
	pc.APIKey = c.APIKey
	pc.Model = c.Model
	pc.BaseURL = c.BaseURL
	pc.EmbedModel = c.EmbedModel
	pc.RequestsPerMinute = c.RequestsPerMinute
	pc.TokensPerMinute = c.TokensPerMinute
	return pc
}

func (a *app) pipeline() *ingest.Pipeline {
	return ingest.New(a.embedder, a.store, ingest.Config{
		ChunkSize:    a.cfg.Ingest.ChunkSize,
		ChunkOverlap: a.cfg.Ingest.ChunkOverlap,
		EmbedBatch:   a.cfg.Ingest.EmbedBatch,
	}, logging.New(logging.Config{Level: a.cfg.Log.Level, Pretty: a.cfg.Log.Pretty}))
}

// answerer builds the answering pipeline. topK overrides the configured
// retrieval depth when positive.
func (a *app) answerer(topK int) *answer.Answerer {
	cfg := answer.Config{
		TopK:         a.cfg.Retrieval.TopK,
		MinScore:     float32(a.cfg.Retrieval.MinScore),
		ContextChars: a.cfg.Retrieval.ContextChars,
		MaxTokens:    a.cfg.Retrieval.MaxTokens,
		Temperature:  a.cfg.Retrieval.Temperature,
	}
	if topK > 0 {
		cfg.TopK = topK
	}
	return answer.New(llm.Split(a.provider, a.embedder), a.store, cfg,
		logging.New(logging.Config{Level: a.cfg.Log.Level, Pretty: a.cfg.Log.Pretty}))
}

func runIngest(ctx context.Context, configPath, path, docID string) error {
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	p := a.pipeline()
	if info.IsDir() {
		batch, err := p.IngestDir(ctx, path)
		if err != nil {
			return err
		}
		fmt.Printf("Ingested %d documents (%d failed)\n", len(batch.Ingested), batch.Failed)
		for _, r := range batch.Ingested {
			fmt.Printf("  %-40s %d chunks\n", r.DocID, r.Chunks)
		}
		return nil
	}

	res, err := p.IngestFile(ctx, path, docID)
	if err != nil {
		return err
	}
	fmt.Printf("Ingested %s as %s (%d chunks)\n", res.Source, res.DocID, res.Chunks)
	return nil
}

func runCrawl(ctx context.Context, configPath, startURL string, maxPages, maxChars int) error {
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	cc := ingest.CrawlConfig{
		MaxPages:  a.cfg.Crawl.MaxPages,
		MaxChars:  a.cfg.Crawl.MaxChars,
		Timeout:   a.cfg.Crawl.Timeout,
		UserAgent: a.cfg.Crawl.UserAgent,
	}
	if maxPages > 0 {
		cc.MaxPages = maxPages
	}
	if maxChars > 0 {
		cc.MaxChars = maxChars
	}

	crawler := ingest.NewCrawler(a.pipeline(), cc, logging.New(logging.Config{Level: a.cfg.Log.Level, Pretty: a.cfg.Log.Pretty}))
	batch, err := crawler.Crawl(ctx, startURL)
	if err != nil {
		return err
	}
	fmt.Printf("Crawled and ingested %d pages (%d failed)\n", len(batch.Ingested), batch.Failed)
	return nil
}

func runAsk(ctx context.Context, configPath, question string, topK int, showContext bool) error {
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	result, err := a.answerer(topK).Answer(ctx, question)
	if err != nil {
		return err
	}

	fmt.Println(result.Text)
	if showContext && len(result.Matches) > 0 {
		fmt.Println("\nRetrieved context:")
		for i, m := range result.Matches {
			fmt.Printf("  %d. %s (score %.3f)\n", i+1, m.Source(), m.Score)
		}
	}
	return nil
}

func runRFP(ctx context.Context, configPath, path, email string) error {
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	log := logging.New(logging.Config{Level: a.cfg.Log.Level, Pretty: a.cfg.Log.Pretty})

	text, err := ingest.ExtractFile(path)
	if err != nil {
		return err
	}

	questions, err := rfp.Breakdown(ctx, a.provider, text)
	if err != nil {
		return err
	}
	fmt.Printf("Extracted %d questions\n", len(questions))

	results := rfp.AnswerAll(ctx, a.answerer(0), questions, log)
	report := rfp.Report("RFP Response Draft", results)

	fmt.Println(report)

	if email != "" {
		d, err := newDeliverer(ctx, a.cfg.Delivery)
		if err != nil {
			return err
		}
		msg := delivery.Message{To: email, Subject: "RFP Response Draft", Body: report}
		if err := d.Deliver(ctx, msg); err != nil {
			// The draft is already printed; a failed send should not
			// discard the run.
			log.Error().Err(err).Str("channel", d.Name()).Msg("delivery failed")
			return nil
		}
		fmt.Printf("Draft sent to %s via %s\n", email, d.Name())
	}
	return nil
}

func runServe(ctx context.Context, configPath string) error {
	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	log := logging.New(logging.Config{Level: a.cfg.Log.Level, Pretty: a.cfg.Log.Pretty})

	d, err := newDeliverer(ctx, a.cfg.Delivery)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Addr:          a.cfg.Server.Addr,
		Version:       version,
		WebhookSecret: a.cfg.Server.WebhookSecret,
	}, a.provider, a.answerer(0), d, log)
	srv.RegisterCheck("qdrant", server.StoreHealthCheck(a.store.Ping))

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("addr", a.cfg.Server.Addr).Msg("serving")
	if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func newDeliverer(ctx context.Context, cfg config.DeliveryConfig) (delivery.Deliverer, error) {
	switch cfg.Channel {
	case "", "console":
		return &delivery.ConsoleDeliverer{Out: os.Stdout}, nil
	case "gmail":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken, TokenType: "Bearer"})
		return delivery.NewGmail(ctx, cfg.From, ts)
	default:
		return nil, fmt.Errorf("unknown delivery channel %q", cfg.Channel)
	}
}
