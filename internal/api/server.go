package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/resgrab/internal/events"
	"github.com/dgnsrekt/resgrab/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service exposes the live state of a capture run.
type Service interface {
	Summary(ctx context.Context) types.RunSummary
	Downloads(ctx context.Context) []types.DownloadRecord
}

type runOutput struct {
	Body types.RunSummary
}

type downloadsOutput struct {
	Body struct {
		Downloads []types.DownloadRecord `json:"downloads"`
	}
}

func NewServer(svc Service, broker *events.Broker) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("resgrab Status API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	if broker != nil {
		router.Get("/api/v1/events", events.WebSocketHandler(broker))
	}

	registerRunHandlers(api, svc)

	return router
}

func registerRunHandlers(api huma.API, svc Service) {
	huma.Register(api, huma.Operation{OperationID: "get-run", Method: http.MethodGet, Path: "/api/v1/run", Summary: "Get run summary", Tags: []string{"Run"}},
		func(ctx context.Context, input *struct{}) (*runOutput, error) {
			return &runOutput{Body: svc.Summary(ctx)}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "list-downloads", Method: http.MethodGet, Path: "/api/v1/downloads", Summary: "List scheduled downloads", Tags: []string{"Run"}},
		func(ctx context.Context, input *struct {
			Status string `query:"status" enum:"pending,succeeded,failed" doc:"Optional status filter"`
		}) (*downloadsOutput, error) {
			all := svc.Downloads(ctx)
			out := &downloadsOutput{}
			out.Body.Downloads = make([]types.DownloadRecord, 0, len(all))
			for _, rec := range all {
				if input.Status != "" && string(rec.Status) != input.Status {
					continue
				}
				out.Body.Downloads = append(out.Body.Downloads, rec)
			}
			return out, nil
		})
}
