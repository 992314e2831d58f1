package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/alphabot-ai/confessional/internal/admission"
	"github.com/alphabot-ai/confessional/internal/auth"
	"github.com/alphabot-ai/confessional/internal/board"
	"github.com/alphabot-ai/confessional/internal/classifier"
	"github.com/alphabot-ai/confessional/internal/config"
	httpapp "github.com/alphabot-ai/confessional/internal/http"
	"github.com/alphabot-ai/confessional/internal/imagestore"
	"github.com/alphabot-ai/confessional/internal/live"
	"github.com/alphabot-ai/confessional/internal/logging"
	"github.com/alphabot-ai/confessional/internal/model"
	"github.com/alphabot-ai/confessional/internal/moderation"
	"github.com/alphabot-ai/confessional/internal/rate"
	"github.com/alphabot-ai/confessional/internal/store"
	"github.com/alphabot-ai/confessional/internal/store/memory"
	"github.com/alphabot-ai/confessional/internal/store/sqlite"
	"github.com/alphabot-ai/confessional/internal/supervisor"
)

func serveCommand(flags *globalFlags) *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"server"},
		Usage:   "Start the board server (default)",
		Action: func(ctx context.Context, c *cli.Command) error {
			return runServe(ctx, flags.ConfigPath)
		},
	}
}

// server holds everything runServe starts and stops.
type server struct {
	cfg        config.Config
	store      store.Store
	hub        *live.Hub
	classifier *classifier.Adapter
	http       *http.Server
	log        zerolog.Logger
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.Version, cfg.Commit, cfg.BuildTime = version, commit, date
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	srv, err := newServer(cfg)
	if err != nil {
		return err
	}
	defer srv.store.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tree := supervisor.NewTree(logging.WithComponent("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddCoreService(supervisor.NewHubService(srv.hub))
	if srv.classifier != nil {
		tree.AddCoreService(supervisor.NewLoaderService(srv.classifier))
	}
	tree.AddAPIService(supervisor.NewHTTPService(srv.http, cfg.Server.ShutdownTimeout))

	srv.log.Info().
		Str("addr", cfg.Server.Addr).
		Str("store", cfg.Store.Driver).
		Str("uploads", cfg.Upload.Storage).
		Bool("classifier", cfg.Classifier.Enabled).
		Str("version", build()).
		Msg("confessional listening")

	err = tree.Serve(ctx)
	srv.log.Info().Msg("shutting down")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newServer wires the board from cfg without starting anything.
func newServer(cfg config.Config) (*server, error) {
	log := logging.WithComponent("server")

	st, err := openStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	cleanup := func(err error) (*server, error) {
		_ = st.Close()
		return nil, err
	}

	hash := cfg.Admin.PasswordHash
	if hash == "" {
		if cfg.Admin.Password == config.DevAdminPassword {
			log.Warn().Msg("using the development admin password; set admin.password_hash before deploying")
		}
		hash, err = auth.HashPassword(cfg.Admin.Password)
		if err != nil {
			return cleanup(err)
		}
	}
	authSvc := auth.NewService(st, cfg.Admin.Username, hash)

	filter, err := newFilter(cfg.Moderation)
	if err != nil {
		return cleanup(err)
	}

	images, err := newImageStore(cfg.Upload)
	if err != nil {
		return cleanup(err)
	}

	var (
		adapter *classifier.Adapter
		cls     admission.Classifier
		avail   httpapp.Availability
	)
	if cfg.Classifier.Enabled {
		adapter = newClassifier(cfg.Classifier)
		cls, avail = adapter, adapter
	}

	categories := make([]model.Category, len(cfg.Board.Categories))
	for i, c := range cfg.Board.Categories {
		categories[i] = model.Category(c)
	}
	pipeline := admission.New(admission.Config{
		Categories:         categories,
		DefaultCategory:    model.Category(cfg.Board.DefaultCategory),
		DefaultDisplayName: cfg.Board.DefaultDisplayName,
		DefaultAvatar:      cfg.Board.DefaultAvatar,
		MaxTextLength:      cfg.Board.MaxTextLength,
		MaxDisplayName:     cfg.Board.MaxDisplayName,
		FailPolicy:         admission.FailPolicy(cfg.Classifier.FailPolicy),
		Policy: classifier.Policy{
			HighRisk:            cfg.Classifier.HighRiskLabels,
			HighRiskThreshold:   cfg.Classifier.HighRiskThreshold,
			Borderline:          cfg.Classifier.BorderlineLabels,
			BorderlineThreshold: cfg.Classifier.BorderlineThreshold,
		},
	}, filter, cls, images, st)

	hub := live.NewHub(cfg.Server.CORSOrigins)
	svc := board.New(st, pipeline, authSvc, hub, categories)

	handler, err := httpapp.NewServer(httpapp.Deps{
		Board:      svc,
		Auth:       authSvc,
		Live:       hub,
		Classifier: avail,
		Config:     cfg,
	})
	if err != nil {
		return cleanup(fmt.Errorf("initialize server: %w", err))
	}

	return &server{
		cfg:        cfg,
		store:      st,
		hub:        hub,
		classifier: adapter,
		http: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		},
		log: log,
	}, nil
}

func openStore(cfg config.Store) (store.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		st, err := sqlite.Open(sqlite.MemoryDSN(cfg.Name))
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil
	default:
		return memory.New(), nil
	}
}

func newFilter(cfg config.Moderation) (*moderation.Filter, error) {
	lists := moderation.DefaultLists()
	if cfg.TermsFile != "" {
		extra, err := moderation.LoadTermsFile(cfg.TermsFile)
		if err != nil {
			return nil, err
		}
		lists = lists.Merge(extra)
	}
	lists = lists.Merge(moderation.Lists{BannedTerms: cfg.ExtraTerms, TLDs: cfg.ExtraTLDs})
	return moderation.New(lists), nil
}

func newImageStore(cfg config.Upload) (imagestore.Store, error) {
	if cfg.Storage == "disk" {
		return imagestore.NewDisk(cfg.Dir, cfg.URLPrefix)
	}
	return imagestore.Inline{}, nil
}

func newClassifier(cfg config.Classifier) *classifier.Adapter {
	burst := int(cfg.MaxRPS)
	if burst < 1 {
		burst = 1
	}
	return classifier.NewAdapter(classifier.NewRemoteModel(cfg.URL), classifier.Options{
		Name:            "nsfw",
		Timeout:         cfg.Timeout,
		LoadTimeout:     cfg.LoadTimeout,
		Limiter:         rate.NewMemory(cfg.MaxRPS, burst),
		BreakerFailures: cfg.BreakerFailures,
		BreakerCooldown: cfg.BreakerCooldown,
		MaxPixels:       cfg.MaxPixels,
	})
}
