package web

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/EgorLis/my-assets/internal/config"
	"github.com/EgorLis/my-assets/internal/transport/web/v1/asset"
	"github.com/EgorLis/my-assets/internal/transport/web/v1/health"
	"github.com/EgorLis/my-assets/internal/transport/web/v1/session"
	"github.com/EgorLis/my-assets/internal/transport/web/v1/upload"
)

type Server struct {
	log    *log.Logger
	server *http.Server
	cfg    *config.Config
}

func New(logger *log.Logger, cfg *config.Config, deps Deps) *Server {
	healthLog := log.New(logger.Writer(), logger.Prefix()+"[health] ", logger.Flags())
	uploadLog := log.New(logger.Writer(), logger.Prefix()+"[uploads] ", logger.Flags())
	assetLog := log.New(logger.Writer(), logger.Prefix()+"[assets] ", logger.Flags())
	sessionLog := log.New(logger.Writer(), logger.Prefix()+"[session] ", logger.Flags())

	h := handlers{
		health: &health.Handler{
			Log:     healthLog,
			DB:      deps.Probes.DB,
			Storage: deps.Probes.Storage,
			Cache:   deps.Probes.Cache,
		},
		upload: &upload.Handler{Log: uploadLog, Pipeline: deps.Services.Pipeline},
		asset: &asset.Handler{
			Log:     assetLog,
			Store:   deps.Services.Assets,
			Bundler: deps.Services.Bundler,
			Codec:   deps.Services.Codec,
			MaxBody: cfg.MaxAssetBytes,
		},
		session: &session.Handler{Log: sessionLog, Blacklist: deps.Auth.Blacklist},
	}

	srv := &http.Server{
		Addr:              cfg.AppPort,
		Handler:           newRouter(h, deps.Auth, deps.Obs, cfg.MaxChunkBytes, logger),
		ReadTimeout:       cfg.HTTPTimeout,
		WriteTimeout:      cfg.HTTPTimeout,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{server: srv, cfg: cfg, log: logger}
}

// Handler: собранный роутер (для httptest).
func (ws *Server) Handler() http.Handler { return ws.server.Handler }

// Run блокируется до Close; http.ErrServerClosed ошибкой не считается.
func (ws *Server) Run() error {
	ws.log.Printf("started on %s", ws.server.Addr)
	if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (ws *Server) Close(ctx context.Context) {
	if err := ws.server.Shutdown(ctx); err != nil {
		ws.log.Printf("forced to shutdown: %v", err)
	}
	ws.log.Println("exited gracefully")
}
