package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datacopilot/internal/metrics"
	"github.com/KaramelBytes/datacopilot/internal/web"
)

var (
	serveAddr     string
	serveProvider string
	serveModel    string
	serveOllama   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web page: upload a CSV, ask questions, download the data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if addr == "" && cfg != nil {
			addr = cfg.ListenAddr
		}
		if addr == "" {
			addr = ":8501"
		}
		if debug {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}

		sess, info, err := newSession(cfg, sessionOptions{
			Runtime: runtimeOptions{ProviderFlag: serveProvider, OllamaHost: serveOllama},
			Model:   serveModel,
			Logger:  log.Log,
		})
		if err != nil {
			return err
		}
		metrics.Register()
		router := web.NewRouter(web.NewHandlers(sess, log.Log))

		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			log.WithFields(log.Fields{
				"addr":     addr,
				"provider": info.Provider,
				"model":    info.Model,
			}).Info("starting data copilot")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)
		select {
		case err, ok := <-errCh:
			if ok {
				return err
			}
			return nil
		case <-quit:
		}

		log.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
		log.Info("server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8501)")
	serveCmd.Flags().StringVar(&serveProvider, "provider", "", "model provider: openai|openrouter|ollama (default from config)")
	serveCmd.Flags().StringVar(&serveModel, "model", "", "model identifier (default from config, gpt-4o)")
	serveCmd.Flags().StringVar(&serveOllama, "ollama-host", "", "Ollama host when --provider=ollama")
}
