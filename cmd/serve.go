package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/propmatch-cli/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the validation webhook server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		// Set up routes
		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		})

		mux.HandleFunc("POST /validate", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Filename         string `json:"filename"`
				Content          string `json:"content"`
				TargetPropertyID *int64 `json:"target_property_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}

			if req.Filename == "" && req.Content == "" {
				http.Error(w, `{"error":"filename or content is required"}`, http.StatusBadRequest)
				return
			}

			doc := model.Document{
				ID:               uuid.NewString(),
				Filename:         req.Filename,
				Content:          req.Content,
				TargetPropertyID: req.TargetPropertyID,
				UploadedAt:       time.Now().UTC(),
			}

			if err := env.store.UpsertDocument(r.Context(), &doc); err != nil {
				zap.L().Error("webhook document upsert failed", zap.Error(err))
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
				return
			}

			res, err := env.orch.ValidateDocument(r.Context(), doc)
			if err != nil {
				zap.L().Error("webhook validation failed",
					zap.String("document_id", doc.ID),
					zap.Error(err),
				)
				http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(res)
		})

		mux.HandleFunc("POST /review/approve", func(w http.ResponseWriter, r *http.Request) {
			handleReview(w, r, func(req reviewRequest) error {
				return env.orch.Approve(r.Context(), req.DocumentID, req.Reviewer)
			})
		})

		mux.HandleFunc("POST /review/correct", func(w http.ResponseWriter, r *http.Request) {
			handleReview(w, r, func(req reviewRequest) error {
				if req.PropertyID == 0 {
					return errBadRequest
				}
				return env.orch.Correct(r.Context(), req.DocumentID, req.PropertyID, req.CorrectedName, req.Reviewer)
			})
		})

		mux.HandleFunc("POST /review/add-alias", func(w http.ResponseWriter, r *http.Request) {
			handleReview(w, r, func(req reviewRequest) error {
				if req.PropertyID == 0 || req.Alias == "" {
					return errBadRequest
				}
				return env.orch.AddAliasForDocument(r.Context(), req.DocumentID, req.PropertyID, req.Alias, req.Reviewer)
			})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown. The signal context is already cancelled
		// here, so drain in-flight requests on a fresh deadline.
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

type reviewRequest struct {
	DocumentID    string `json:"document_id"`
	PropertyID    int64  `json:"property_id"`
	Alias         string `json:"alias"`
	CorrectedName string `json:"corrected_name"`
	Reviewer      string `json:"reviewer"`
}

var errBadRequest = eris.New("missing required field")

func handleReview(w http.ResponseWriter, r *http.Request, act func(reviewRequest) error) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.DocumentID == "" {
		http.Error(w, `{"error":"document_id is required"}`, http.StatusBadRequest)
		return
	}

	if err := act(req); err != nil {
		if eris.Is(err, errBadRequest) {
			http.Error(w, `{"error":"missing required field"}`, http.StatusBadRequest)
			return
		}
		zap.L().Error("webhook review action failed",
			zap.String("document_id", req.DocumentID),
			zap.Error(err),
		)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok", "document_id": req.DocumentID})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
