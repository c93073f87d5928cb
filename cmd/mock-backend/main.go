package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/deepwiki-chat/internal/mockbackend"
)

var (
	flagPort     int
	flagKeepOpen bool
	flagProjects string
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	flag.IntVar(&flagPort, "port", 8001, "HTTP server port")
	flag.BoolVar(&flagKeepOpen, "keep-open", false, "keep chat sockets open after replying")
	flag.StringVar(&flagProjects, "projects", "", "JSON file served by /api/processed_projects")
	flag.Parse()

	if err := runServer(); err != nil {
		log.Fatal().Err(err).Msg("[mock] server failed")
	}
}

func runServer() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := mockbackend.Config{KeepOpen: flagKeepOpen}
	if flagProjects != "" {
		data, err := os.ReadFile(flagProjects)
		if err != nil {
			return fmt.Errorf("read projects: %w", err)
		}
		var projects any
		if err := json.Unmarshal(data, &projects); err != nil {
			return fmt.Errorf("parse projects: %w", err)
		}
		cfg.Projects = projects
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", flagPort),
		Handler:           mockbackend.New(cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("[mock] http server shutdown error")
		}
	}()

	log.Info().Str("addr", srv.Addr).Msg("[mock] serving DeepWiki stand-in")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Msg("[mock] shutdown complete")
	return nil
}
