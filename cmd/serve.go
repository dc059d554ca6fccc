package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medley-health/roster-cli/internal/nlquery"
	"github.com/medley-health/roster-cli/internal/roster"
	"github.com/medley-health/roster-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the roster processing API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		var translator *nlquery.Translator
		if cfg.Anthropic.Key != "" {
			translator = nlquery.NewTranslator(nlquery.NewClient(cfg.Anthropic.Key), st, cfg.Anthropic.Model)
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(st, translator),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(st store.Store, translator *nlquery.Translator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/roster", func(w http.ResponseWriter, req *http.Request) {
		input, err := roster.ReadCSV(req.Body)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid csv body")
			return
		}
		if input.Len() == 0 && len(input.Columns) == 0 {
			writeJSONError(w, http.StatusBadRequest, "empty roster")
			return
		}

		sourceFile := req.URL.Query().Get("source")
		if sourceFile == "" {
			sourceFile = "upload"
		}

		artifacts, err := executeRun(req.Context(), st, input, sourceFile)
		if err != nil {
			zap.L().Error("roster run failed", zap.Error(err))
			writeJSONError(w, http.StatusInternalServerError, "pipeline run failed")
			return
		}
		writeJSONResponse(w, http.StatusOK, artifacts.Summary)
	})

	r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeJSONError(w, http.StatusNotFound, "run not found")
			return
		}
		writeJSONResponse(w, http.StatusOK, run)
	})

	r.Post("/query", func(w http.ResponseWriter, req *http.Request) {
		if translator == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "natural-language queries are not configured")
			return
		}
		var body struct {
			Question string `json:"question"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Question == "" {
			writeJSONError(w, http.StatusBadRequest, "question is required")
			return
		}
		result, err := translator.Query(req.Context(), body.Question)
		if err != nil {
			zap.L().Error("nl query failed", zap.String("question", body.Question), zap.Error(err))
			writeJSONError(w, http.StatusBadGateway, "query translation failed")
			return
		}
		writeJSONResponse(w, http.StatusOK, result)
	})

	return r
}

func writeJSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSONResponse(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
