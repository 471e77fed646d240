// Command spotify-yearly-albums runs the Spotify Yearly Albums web application.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"

	"github.com/justestif/go-spotify-yearly-albums/internal/config"
	"github.com/justestif/go-spotify-yearly-albums/internal/db"
	"github.com/justestif/go-spotify-yearly-albums/internal/web"
	webfs "github.com/justestif/go-spotify-yearly-albums/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if level, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	// Create sub-filesystems for templates and static files
	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}

	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}

	// Sessions persist in Postgres when a database is configured,
	// otherwise in process memory.
	var database *db.DB
	if cfg.DatabaseURL != "" {
		database, err = db.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		logger.Info("using database-backed sessions")
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:         cfg.Addr,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		PerMonth:     cfg.PerMonth,
		CacheMB:      cfg.CacheMB,
		CacheTTL:     cfg.CacheTTL,
		Database:     database,
		TemplatesFS:  templates,
		StaticFS:     static,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run()
}
