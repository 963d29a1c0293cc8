package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Gwildor/Pyromancer/internal/bot"
	"github.com/Gwildor/Pyromancer/internal/builtin"
	"github.com/Gwildor/Pyromancer/internal/config"
	"github.com/Gwildor/Pyromancer/internal/irc"
	"github.com/Gwildor/Pyromancer/internal/logger"
	"github.com/Gwildor/Pyromancer/internal/status"
	"github.com/Gwildor/Pyromancer/internal/storage"
	"github.com/Gwildor/Pyromancer/internal/track"
)

// Version information - set at build time via ldflags
var (
	version   = "dev"
	buildDate = "unknown"
	gitCommit = "unknown"
)

const daemonEnv = "PYROMANCER_DAEMON"

func main() {
	foreground := flag.Bool("x", false, "Run in foreground (don't daemonize)")
	configPath := flag.String("c", "./config.yaml", "Path to configuration file")
	showVersion := flag.Bool("v", false, "Show version information and exit")
	showVersionLong := flag.Bool("version", false, "Show version information and exit")
	flag.Parse()

	if *showVersion || *showVersionLong {
		fmt.Printf("pyromancer version %s\n", version)
		fmt.Printf("Built: %s\n", buildDate)
		fmt.Printf("Commit: %s\n", gitCommit)
		os.Exit(0)
	}

	builtin.Version = version
	builtin.BuildDate = buildDate
	builtin.GitCommit = gitCommit

	if !*foreground {
		daemonize()
		return
	}

	if err := writePIDFile(); err != nil {
		log.Printf("Warning: could not write PID file: %v", err)
	}

	os.Exit(run(*configPath))
}

// daemonize re-executes the binary detached from the terminal
func daemonize() {
	if os.Getenv(daemonEnv) == "1" {
		if err := writePIDFile(); err != nil {
			log.Printf("Warning: could not write PID file: %v", err)
		}

		fmt.Printf("Now becoming a daemon\nMy pid is %d, this has been written to pid.txt\n", os.Getpid())

		args := append(os.Args, "-x")
		cmd := exec.Command(args[0], args[1:]...)
		cmd.Env = os.Environ()

		if err := cmd.Start(); err != nil {
			log.Fatalf("Failed to start daemon: %v", err)
		}
		os.Exit(0)
	}

	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Env = append(os.Environ(), daemonEnv+"=1")

	if err := cmd.Start(); err != nil {
		log.Fatalf("Failed to fork: %v", err)
	}
	os.Exit(0)
}

func writePIDFile() error {
	pid := os.Getpid()
	return os.WriteFile("pid.txt", []byte(fmt.Sprintf("%d\n", pid)), 0644)
}

func run(configPath string) int {
	if !filepath.IsAbs(configPath) {
		wd, _ := os.Getwd()
		configPath = filepath.Join(wd, configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	l := logger.New(cfg.LogFile)
	l.SetLogLevel(cfg.LogLevel)

	files, err := storage.Open(cfg.DataDir)
	if err != nil {
		l.Error("Failed to open data directory", err, "dir", cfg.DataDir)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := irc.NewClient(cfg, l)
	b := bot.New(cfg, l, client)

	builtins := builtin.New(cfg, l, files)
	builtins.OnShutdown = cancel
	builtins.OnRestart = func() {
		client.Quit("Restarting")

		var args []string
		for _, arg := range os.Args {
			if arg != "-x" {
				args = append(args, arg)
			}
		}
		if err := syscall.Exec(args[0], args, os.Environ()); err != nil {
			l.Error("Failed to restart", err)
			cancel()
		}
	}

	b.Register(track.New(cfg.WhoisTTL).Commands()...)
	b.Register(builtins.Commands()...)
	b.Register(builtin.Examples()...)
	client.Listen(b.Verbs()...)

	if err := b.Schedule(cfg.Timers); err != nil {
		l.Error("Invalid timers", err)
		return 1
	}

	var router *status.Router
	if cfg.HTTPAddr != "" {
		router = status.NewRouter(cfg, l, b)
		router.Start()
	}

	l.Info("Connecting", "server", cfg.Server, "port", cfg.Port)
	if err := client.Connect(); err != nil {
		l.Error("Failed to connect", err)
		return 1
	}

	go client.Run(ctx)
	go func() {
		<-client.Done()
		cancel()
	}()

	if err := b.Run(ctx, client.Lines()); err != nil {
		l.Error("Dispatch loop failed", err)
	}

	client.Quit("Shutting down")
	if router != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := router.Shutdown(shutdownCtx); err != nil {
			l.Warn("Status server shutdown", "error", err)
		}
	}

	l.Info("Bye")
	return 0
}
