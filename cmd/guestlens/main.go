package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"guestlens/internal/analyzer"
	"guestlens/internal/config"
	"guestlens/internal/jobs"
	"guestlens/internal/logging"
	"guestlens/internal/metrics"
	"guestlens/internal/model"
	"guestlens/internal/server"
	"guestlens/internal/stats"
	"guestlens/internal/store/history"
	"guestlens/internal/store/session"
	"guestlens/internal/theme"
	"guestlens/internal/vkapi"
)

func main() {
	logging.Setup()

	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "analyze":
		cmdAnalyze()
	case "refresh":
		cmdRefresh()
	case "stats":
		cmdStats()
	case "serve":
		cmdServe()
	default:
		printHelp()
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: guestlens <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./guestlens.yaml")
	fmt.Println("  analyze     Run one guest analysis and print the ranking")
	fmt.Println("  refresh     Run analysis on an interval, persisting snapshots")
	fmt.Println("  stats       Show stored daily audience stats")
	fmt.Println("  serve       Expose the analysis over HTTP")
}

func loadConfig(path string) config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg = config.Default()
			cfg.ResolveEnv()
			return cfg
		}
		log.Fatal().Err(err).Str("path", path).Msg("config load failed")
	}
	return cfg
}

func buildSession(ctx context.Context, cfg config.Config) model.Session {
	if cfg.Storage.RedisAddr != "" {
		store := session.NewStoreAddr(cfg.Storage.RedisAddr)
		if sess, err := store.Load(ctx, cfg.Account.UserID); err == nil {
			return sess
		}
	}
	return model.Session{UserID: cfg.Account.UserID, AccessToken: cfg.Credentials.AccessToken}
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("config", "./guestlens.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	if err := config.Save(*path, config.Default()); err != nil {
		log.Fatal().Err(err).Msg("config write failed")
	}
	fmt.Printf("wrote %s\n", *path)
}

func cmdAnalyze() {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	path := fs.String("config", "./guestlens.yaml", "config path")
	asJSON := fs.Bool("json", false, "print full JSON instead of a table")
	_ = fs.Parse(os.Args[2:])

	cfg := loadConfig(*path)
	metrics.StartServer(cfg.Serve.MetricsAddr)
	ctx := context.Background()

	an := analyzer.New(vkapi.NewHTTPClient(cfg.API), cfg)
	guests := an.AnalyzeGuests(ctx, buildSession(ctx, cfg))

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(guests)
		return
	}
	theme.PrintBanner()
	for i, g := range guests {
		name := g.Profile.FirstName
		if g.Profile.LastName != "" {
			name += " " + g.Profile.LastName
		}
		fmt.Printf("%3d. %-28s %3d%%  %-12s %s\n", i+1, name, g.Probability, g.ActivityType, g.Details)
	}
}

func cmdRefresh() {
	fs := flag.NewFlagSet("refresh", flag.ExitOnError)
	path := fs.String("config", "./guestlens.yaml", "config path")
	interval := fs.Duration("interval", 6*time.Hour, "refresh interval (0 = run once)")
	_ = fs.Parse(os.Args[2:])

	cfg := loadConfig(*path)
	metrics.StartServer(cfg.Serve.MetricsAddr)

	db, err := history.Open(cfg.Storage.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("history open failed")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	an := analyzer.New(vkapi.NewHTTPClient(cfg.API), cfg)
	sess := buildSession(ctx, cfg)

	if *interval <= 0 {
		if err := jobs.RunRefreshOnce(ctx, db, an, sess); err != nil {
			log.Fatal().Err(err).Msg("refresh failed")
		}
		return
	}
	_ = jobs.RunRefreshLoop(ctx, db, an, sess, *interval)
}

func cmdStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	path := fs.String("config", "./guestlens.yaml", "config path")
	days := fs.Int("days", 7, "days to show")
	_ = fs.Parse(os.Args[2:])

	cfg := loadConfig(*path)
	db, err := history.Open(cfg.Storage.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("history open failed")
	}
	defer db.Close()

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -(*days - 1))
	out, err := db.LoadDailyStats(context.Background(), cfg.Account.UserID, from, to)
	if err != nil {
		log.Fatal().Err(err).Msg("stats load failed")
	}
	if len(out) == 0 {
		fmt.Println("no stored stats; run `guestlens refresh` first")
		return
	}
	for _, day := range out {
		printDay(day)
	}
}

func printDay(day stats.Daily) {
	fmt.Printf("%s  views=%d visitors=%d  m/f=%d/%d\n",
		day.Date, day.Views, day.Visitors,
		day.Demographics.MalePercent, day.Demographics.FemalePercent)
	for _, city := range day.Demographics.TopCities {
		fmt.Printf("      %-20s %d\n", city.Name, city.Count)
	}
}

func cmdServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	path := fs.String("config", "./guestlens.yaml", "config path")
	_ = fs.Parse(os.Args[2:])

	cfg := loadConfig(*path)
	metrics.StartServer(cfg.Serve.MetricsAddr)

	db, err := history.Open(cfg.Storage.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("history open failed")
	}
	defer db.Close()

	var sessions *session.Store
	if cfg.Storage.RedisAddr != "" {
		sessions = session.NewStoreAddr(cfg.Storage.RedisAddr)
	}

	an := analyzer.New(vkapi.NewHTTPClient(cfg.API), cfg)
	srv := server.New(an, sessions, db, cfg)
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
