package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kiliankoe/swgdash/internal/api"
	"github.com/kiliankoe/swgdash/internal/config"
	"github.com/kiliankoe/swgdash/internal/game"
	"github.com/kiliankoe/swgdash/internal/metrics"
	"github.com/kiliankoe/swgdash/internal/ws"
	staticserver "github.com/kiliankoe/swgdash/static"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
)

var version = "dev" // Set at build time via -ldflags

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`swgdash - Snake Water Gun in the browser

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                  Port to listen on (default: 8080)
  LOG_LEVEL             debug, info, warn or error (default: info)
  REVEAL_DELAY_MS       Cutscene length before a result is shown (default: 1400)
  BURST_MS              Result burst length, negative disables it (default: 900)
  HISTORY_LIMIT         Rounds kept per session (default: 50)
  SINGLE_SESSION        Keep only the newest session (default: false)
  SESSION_IDLE_TIMEOUT  Drop sessions idle this long (default: 30m)
  EXPORT_ENABLED        Append revealed rounds to a text log (default: false)
  EXPORT_FILE           Path of the round log (default: ./swgdash-rounds.txt)
  RNG_SEED              Seed for computer picks, 0 uses the clock (default: 0)

Examples:
  %s                  Start server with default settings
  %s --port 3000      Start server on port 3000

Visit http://localhost:8080 after starting the server.
`, os.Args[0], os.Args[0], os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("swgdash %s\n", version)
		return
	}

	cfg := config.FromEnv()
	if *portFlag != "" {
		cfg.Port = *portFlag
	}

	zerolog.TimeFieldFormat = time.RFC3339
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.Middleware())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") || path == "/metrics" {
			return
		}
		zerologlog.Info().Str("path", path).Int("status", c.Writer.Status()).Dur("dur", time.Since(start)).Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sessions := game.NewManager(game.ManagerConfig{
		Session: game.SessionConfig{
			RevealDelay:   cfg.RevealDelay,
			BurstDuration: cfg.BurstDuration,
			HistoryLimit:  cfg.HistoryLimit,
		},
		SingleSession: cfg.SingleSession,
		Seed:          cfg.Seed,
	}, game.WithStaleHook(metrics.Stale))

	metrics.Watch(sessions)
	if cfg.ExportEnabled {
		sessions.OnCreate(func(s *game.Session) { exportRounds(s, cfg.ExportFile) })
	}

	sock := ws.New(sessions)
	io := sock.Mount(r)
	defer io.Close()

	(&api.API{Sessions: sessions, HasAsset: staticserver.Has}).Register(r)

	go sweep(sessions, cfg.IdleTimeout)

	// Serve frontend for all other routes
	r.NoRoute(func(c *gin.Context) {
		staticserver.Handler().ServeHTTP(c.Writer, c.Request)
	})

	zerologlog.Info().Str("port", cfg.Port).Str("version", version).Msg("listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		zerologlog.Fatal().Err(err).Msg("server stopped")
	}
}

func exportRounds(s *game.Session, file string) {
	s.Subscribe(func(snap game.Snapshot) {
		if snap.Event != game.EventRevealed {
			return
		}
		hist := s.History()
		for i := len(hist) - 1; i >= 0; i-- {
			if hist[i].ID != snap.RoundID {
				continue
			}
			if err := game.ExportRound(file, s.Code, hist[i], snap.Score); err != nil {
				zerologlog.Error().Err(err).Str("code", s.Code).Msg("failed to export round")
			}
			return
		}
	})
}

func sweep(sessions *game.Manager, idle time.Duration) {
	t := time.NewTicker(idle / 2)
	defer t.Stop()
	for now := range t.C {
		if n := sessions.Sweep(now, idle); n > 0 {
			zerologlog.Info().Int("removed", n).Msg("swept idle sessions")
		}
	}
}
