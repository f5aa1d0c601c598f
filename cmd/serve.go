package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/salespulse/internal/ingest"
	"github.com/sells-group/salespulse/internal/store"
)

var servePort int

// serverEnv carries the wired dependencies for the HTTP handlers.
type serverEnv struct {
	store     store.Store
	ingestor  *ingest.Ingestor
	secret    string
	maxSkew   time.Duration
	maxUpload int64
	uploadDir string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload webhook and the metrics read API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		ing, err := initIngestor(st)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.Ingest.UploadDir, 0o755); err != nil {
			return eris.Wrap(err, "create upload dir")
		}

		env := &serverEnv{
			store:     st,
			ingestor:  ing,
			secret:    cfg.Server.WebhookSecret,
			maxSkew:   time.Duration(cfg.Server.MaxSkewSecs) * time.Second,
			maxUpload: cfg.Server.MaxUploadBytes,
			uploadDir: cfg.Ingest.UploadDir,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func newRouter(env *serverEnv) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "X-Signature", "X-Timestamp", "X-Filename"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/v1/accounts", env.handleListAccounts)
	r.Get("/v1/accounts/{code}/metrics", env.handleGetMetrics)
	r.Post("/v1/uploads", env.handleUpload)

	return r
}

func (env *serverEnv) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.MetricsFilter{Segment: q.Get("segment")}
	filter.MinPriority, _ = strconv.ParseFloat(q.Get("min_priority"), 64)
	filter.MaxHealth, _ = strconv.ParseFloat(q.Get("max_health"), 64)
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	list, err := env.store.ListMetrics(r.Context(), filter)
	if err != nil {
		zap.L().Error("list metrics failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (env *serverEnv) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	m, err := env.store.GetMetrics(r.Context(), code)
	if err != nil {
		zap.L().Error("get metrics failed", zap.String("code", code), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if m == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "account not found"})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// handleUpload accepts a signed sales file and queues it for ingestion.
// The response is 202: ingestion runs in the background and failures
// surface via logs, matching the file-drop semantics of the FTP path.
func (env *serverEnv) handleUpload(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, env.maxUpload+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}
	if int64(len(body)) > env.maxUpload {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
		return
	}

	if err := verifyUpload(env.secret, env.maxSkew, time.Now(),
		r.Header.Get("X-Timestamp"), r.Header.Get("X-Signature"), body); err != nil {
		zap.L().Warn("rejected upload", zap.Error(err))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
		return
	}

	name := filepath.Base(r.Header.Get("X-Filename"))
	if name == "" || name == "." {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "X-Filename is required"})
		return
	}

	uploadID := uuid.New().String()
	local := filepath.Join(env.uploadDir, uploadID+"_"+name)
	if err := os.WriteFile(local, body, 0o644); err != nil {
		zap.L().Error("save upload failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	go func() {
		report, err := env.ingestor.IngestFile(context.Background(), local)
		if err != nil {
			zap.L().Error("upload ingest failed",
				zap.String("upload_id", uploadID),
				zap.String("file", name),
				zap.Error(err))
			return
		}
		zap.L().Info("upload ingested",
			zap.String("upload_id", uploadID),
			zap.String("file", name),
			zap.Int("inserted", report.Inserted),
			zap.Int("unresolved", len(report.Unresolved)))
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":    "accepted",
		"upload_id": uploadID,
	})
}

// uploadSignature is HMAC-SHA256 over the timestamp concatenated with
// the hex SHA-256 of the file body, so neither can be swapped out
// without invalidating the signature.
func uploadSignature(secret, timestamp string, body []byte) string {
	fileHash := sha256.Sum256(body)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + hex.EncodeToString(fileHash[:])))
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyUpload(secret string, maxSkew time.Duration, now time.Time, timestamp, signature string, body []byte) error {
	if timestamp == "" || signature == "" {
		return eris.New("missing timestamp or signature")
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return eris.Wrap(err, "parse timestamp")
	}
	skew := now.Sub(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > maxSkew {
		return eris.Errorf("timestamp outside %s window", maxSkew)
	}
	want := uploadSignature(secret, timestamp, body)
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return eris.New("signature mismatch")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
