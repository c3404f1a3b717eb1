package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/EgorLis/my-assets/internal/assets"
	"github.com/EgorLis/my-assets/internal/auth/blacklist"
	"github.com/EgorLis/my-assets/internal/auth/token"
	"github.com/EgorLis/my-assets/internal/bundle"
	"github.com/EgorLis/my-assets/internal/codec"
	"github.com/EgorLis/my-assets/internal/config"
	"github.com/EgorLis/my-assets/internal/domain"
	redisx "github.com/EgorLis/my-assets/internal/infra/cache/redis"
	"github.com/EgorLis/my-assets/internal/infra/database/memory"
	"github.com/EgorLis/my-assets/internal/infra/database/postgres"
	fsstorage "github.com/EgorLis/my-assets/internal/infra/storage/fs"
	s3storage "github.com/EgorLis/my-assets/internal/infra/storage/s3"
	"github.com/EgorLis/my-assets/internal/ingest"
	"github.com/EgorLis/my-assets/internal/ingest/chunkstore"
	"github.com/EgorLis/my-assets/internal/ingest/merge"
	"github.com/EgorLis/my-assets/internal/ingest/sweeper"
	"github.com/EgorLis/my-assets/internal/lock"
	"github.com/EgorLis/my-assets/internal/metrics"
	"github.com/EgorLis/my-assets/internal/transport/web"
	"github.com/EgorLis/my-assets/internal/transport/web/mw"
)

type App struct {
	config  *config.Config
	server  *web.Server
	sweeper *sweeper.Sweeper
	log     *log.Logger
	repo    domain.AssetsRepo
	cache   *redisx.Cache // nil без Redis
}

func logger(base *log.Logger, name string) *log.Logger {
	return log.New(base.Writer(), base.Prefix()+"["+name+"] ", base.Flags())
}

// NewBaseLogger: корневой логгер процесса.
func NewBaseLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stdout
	}
	return log.New(w, "[app] ", log.LstdFlags)
}

func Build(ctx context.Context) (*App, error) {
	base := NewBaseLogger(os.Stdout)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed load config: %w", err)
	}
	base.Printf("\n  configuration: %s-------------------", cfg)
	return BuildWith(ctx, cfg, base, prometheus.NewRegistry())
}

// BuildWith собирает приложение из готового конфига (serve и тесты).
func BuildWith(ctx context.Context, cfg *config.Config, base *log.Logger, reg *prometheus.Registry) (app *App, err error) {
	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	repo, err := buildCatalog(ctx, cfg, base)
	if err != nil {
		return nil, err
	}
	closers = append(closers, repo.Close)

	payloads, err := buildPayloads(ctx, cfg, base)
	if err != nil {
		return nil, err
	}

	var rc *redisx.Cache
	if cfg.RedisAddr != "" {
		base.Println("init Redis")
		rc = redisx.New(redisx.Config{
			Addr:     cfg.RedisAddr,
			DB:       cfg.RedisDB,
			Password: cfg.RedisPassword,
			Prefix:   cfg.RedisPrefix,
		}, logger(base, "redis"))
		if err := rc.Ping(ctx); err != nil {
			rc.Close()
			return nil, fmt.Errorf("failed init redis: %w", err)
		}
		closers = append(closers, rc.Close)
		base.Println("Redis is initialized")
	} else {
		base.Println("REDIS_ADDR is empty: no metadata cache, no cross-instance merge lease, no token revocation")
	}

	algo, err := codec.ParseAlgorithm(cfg.CodecAlgorithm)
	if err != nil {
		return nil, err
	}
	cdc := codec.New(algo)

	chunks, eng, err := buildStaging(cfg, base)
	if err != nil {
		return nil, err
	}
	// одни блокировки на склейку и sweeper
	mergeLocks := lock.NewKeyed()
	chunks.GuardWith(mergeLocks)

	storeDeps := assets.Deps{
		Repo:     repo,
		Payloads: payloads,
		Codec:    cdc,
		CacheTTL: cfg.CacheTTL,
		Log:      logger(base, "assets"),
		Metrics:  m,
	}
	ingestDeps := ingest.Deps{
		Chunks:   chunks,
		Merger:   eng,
		Codec:    cdc,
		LeaseTTL: cfg.MergeLeaseTTL,
		Locks:    mergeLocks,
		Log:      logger(base, "ingest"),
		Metrics:  m,
	}
	authDeps := mw.AuthDeps{Tokens: token.New(cfg.AuthJWTSecret, cfg.AuthIssuer, cfg.AuthTokenTTL)}
	probes := web.Probes{DB: repo, Storage: payloads}
	// интерфейсы заполняем только живым клиентом: typed nil != nil
	if rc != nil {
		storeDeps.Cache = rc
		ingestDeps.Lease = rc
		authDeps.Blacklist = blacklist.NewStore(rc)
		probes.Cache = rc
	}

	store := assets.New(storeDeps)
	ingestDeps.Assets = store
	pipeline := ingest.NewService(ingestDeps)
	bundler := bundle.New(store, logger(base, "bundle"), m)

	base.Println("init Server")
	server := web.New(logger(base, "server"), cfg, web.Deps{
		Services: web.Services{Pipeline: pipeline, Assets: store, Bundler: bundler, Codec: cdc},
		Auth:     authDeps,
		Probes:   probes,
		Obs:      web.Observability{Metrics: m, Gatherer: reg},
	})
	base.Println("Server is initialized")

	sw := NewSweeper(cfg, chunks, eng, logger(base, "sweeper"), m)

	base.Println("build ended")
	return &App{
		config:  cfg,
		server:  server,
		sweeper: sw,
		log:     base,
		repo:    repo,
		cache:   rc,
	}, nil
}

func buildCatalog(ctx context.Context, cfg *config.Config, base *log.Logger) (domain.AssetsRepo, error) {
	if cfg.CatalogDriver == config.DriverMemory {
		base.Println("catalog: in-memory (data is lost on restart)")
		return memory.New(), nil
	}
	base.Println("init PostgreSQL")
	pgRepo, err := postgres.NewPGRepo(ctx, logger(base, "postgres"), cfg.GetDSN(), cfg.DBScheme)
	if err != nil {
		return nil, fmt.Errorf("failed init postgres: %w", err)
	}
	base.Println("PostgreSQL is initialized")
	return pgRepo, nil
}

func buildPayloads(ctx context.Context, cfg *config.Config, base *log.Logger) (domain.PayloadStorage, error) {
	if cfg.StorageDriver == config.DriverS3 {
		base.Println("init S3 storage")
		s3, err := s3storage.New(ctx, s3storage.Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
			PathStyle: cfg.S3PathStyle,
		}, logger(base, "s3"))
		if err != nil {
			return nil, fmt.Errorf("failed init s3: %w", err)
		}
		return s3, nil
	}
	base.Printf("init fs storage at %s", cfg.StorageRoot)
	disk, err := fsstorage.New(cfg.StorageRoot, logger(base, "fs"))
	if err != nil {
		return nil, fmt.Errorf("failed init fs storage: %w", err)
	}
	return disk, nil
}

func buildStaging(cfg *config.Config, base *log.Logger) (*chunkstore.Store, *merge.Engine, error) {
	chunks, err := chunkstore.New(cfg.ChunkRoot, cfg.MaxChunkBytes, logger(base, "chunks"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed init chunk store: %w", err)
	}
	eng, err := merge.New(chunks, cfg.MergeRoot, logger(base, "merge"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed init merge engine: %w", err)
	}
	return chunks, eng, nil
}

func NewSweeper(cfg *config.Config, chunks *chunkstore.Store, eng *merge.Engine, l *log.Logger, m *metrics.Metrics) *sweeper.Sweeper {
	return sweeper.New(map[string]sweeper.Area{
		"chunks": chunks,
		"merged": eng,
	}, cfg.SweepInterval, cfg.ChunkMaxAge, l, m)
}

// SweepOnce: один проход без сервера (assetd sweep): нужны только каталоги staging.
func SweepOnce(ctx context.Context, cfg *config.Config, base *log.Logger) (int, error) {
	chunks, eng, err := buildStaging(cfg, base)
	if err != nil {
		return 0, err
	}
	return NewSweeper(cfg, chunks, eng, logger(base, "sweeper"), nil).Once(ctx)
}

func (a *App) Server() *web.Server { return a.server }

// Run держит сервер и sweeper в одной errgroup: падение одного гасит оба.
func (a *App) Run(ctx context.Context) error {
	a.log.Println("start application...")
	g, gctx := errgroup.WithContext(ctx)

	g.Go(a.server.Run)
	g.Go(func() error { return a.sweeper.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		a.log.Println("stop application...")
		stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.server.Close(stopCtx)
		return nil
	})

	err := g.Wait()
	a.repo.Close()
	if a.cache != nil {
		a.cache.Close()
	}
	return err
}
