// Package main runs the slot machine on the local terminal or as a Telnet
// server.
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cory-johannsen/slot/internal/config"
	"github.com/cory-johannsen/slot/internal/frontend/audio"
	"github.com/cory-johannsen/slot/internal/frontend/confetti"
	"github.com/cory-johannsen/slot/internal/frontend/shell"
	"github.com/cory-johannsen/slot/internal/frontend/telnet"
	"github.com/cory-johannsen/slot/internal/game/dice"
	"github.com/cory-johannsen/slot/internal/game/ledger"
	"github.com/cory-johannsen/slot/internal/game/machine"
	"github.com/cory-johannsen/slot/internal/game/outcome"
	"github.com/cory-johannsen/slot/internal/game/reel"
	"github.com/cory-johannsen/slot/internal/game/symbol"
	"github.com/cory-johannsen/slot/internal/observability"
	"github.com/cory-johannsen/slot/internal/server"
	"github.com/cory-johannsen/slot/internal/storage/backend"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file; empty uses defaults and SLOT_ environment variables")
	mode := flag.String("mode", "", "frontend mode override: terminal or telnet")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *mode != "" {
		cfg.Frontend.Mode = *mode
		if err := cfg.Validate(); err != nil {
			log.Fatalf("invalid -mode: %v", err)
		}
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	store, err := backend.Open(ctx, cfg, logger.Named("storage"))
	if err != nil {
		logger.Fatal("opening storage", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing storage", zap.Error(err))
		}
	}()

	reg := symbol.Default()
	if cfg.Machine.SymbolsFile != "" {
		reg, err = symbol.LoadFile(cfg.Machine.SymbolsFile)
		if err != nil {
			logger.Fatal("loading symbols", zap.String("path", cfg.Machine.SymbolsFile), zap.Error(err))
		}
	}

	outcomeSrc, animSrc, confettiSrc := sources(cfg.Machine.Seed)

	l := ledger.New(store.Store,
		ledger.WithKey(cfg.Machine.BalanceKey),
		ledger.WithDefaultBalance(cfg.Machine.StartingBalance),
		ledger.WithRamp(cfg.Machine.RampSteps, cfg.Machine.RampTick),
		ledger.WithLogger(logger.Named("ledger")),
	)
	balance := l.Load(ctx)

	engine := outcome.NewEngine(reg,
		dice.NewLoggedSource(outcomeSrc, "outcome", logger.Named("dice")),
		dice.Chance(cfg.Machine.WinChanceBP),
	)
	animator := reel.NewAnimator(reg, animSrc, reel.Timing{
		Stagger:    cfg.Animation.Stagger,
		Tick:       cfg.Animation.Tick,
		Window:     cfg.Animation.Window,
		WindowStep: cfg.Animation.WindowStep,
	}, logger.Named("reel"))

	metrics := observability.NewMetrics()
	hub := shell.NewHub()
	m, err := machine.New(machine.Config{
		Reels:     cfg.Machine.Reels,
		Rows:      cfg.Machine.Rows,
		SpinCost:  cfg.Machine.SpinCost,
		WinReward: cfg.Machine.WinReward,
	}, l, engine, animator,
		machine.WithObserver(hub),
		machine.WithRecorder(metrics),
		machine.WithJournal(store.Journal),
		machine.WithLogger(logger.Named("machine")),
	)
	if err != nil {
		logger.Fatal("creating machine", zap.Error(err))
	}

	renderer, err := shell.NewRenderer(reg, cfg.Frontend, cfg.Machine.SpinCost)
	if err != nil {
		logger.Fatal("creating renderer", zap.Error(err))
	}
	shellOpts := []shell.Option{
		shell.WithPlayer(audio.NewBellPlayer(cfg.Assets, logger.Named("audio"))),
		shell.WithJournal(store.Journal),
		shell.WithConfetti(confetti.DefaultOptions(), 40, 8, confettiSrc),
	}

	lifecycle := server.NewLifecycle(logger)
	if cfg.Metrics.Addr != "" {
		lifecycle.Add("metrics", observability.NewMetricsServer(cfg.Metrics.Addr, cfg.Metrics.Path, metrics, logger.Named("metrics")))
	}

	switch cfg.Frontend.Mode {
	case config.ModeTelnet:
		spinCtx, stopSpins := context.WithCancel(ctx)
		sessions := shell.NewSessions(m, hub, renderer, logger.Named("shell"),
			append(shellOpts, shell.WithSpinContext(spinCtx))...)
		acc := telnet.NewAcceptor(cfg.Telnet, sessions, logger.Named("telnet"))
		lifecycle.Add("telnet", &server.FuncService{
			StartFn: acc.ListenAndServe,
			StopFn: func() {
				stopSpins()
				acc.Stop()
			},
		})
	default:
		sh := shell.New(m, hub, shell.NewStdio(os.Stdin, os.Stdout), renderer,
			append(shellOpts, shell.WithLogger(logger.Named("shell")))...)
		shellCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		lifecycle.Add("shell", &server.FuncService{
			StartFn: func() error {
				defer close(done)
				return sh.Run(shellCtx)
			},
			StopFn: func() {
				cancel()
				<-done
			},
		})
	}

	logger.Info("slot machine ready",
		zap.String("mode", cfg.Frontend.Mode),
		zap.String("storage", store.Name),
		zap.Int64("balance", balance),
		zap.Stringer("win_chance", engine.Chance()),
		zap.Int("symbols", reg.Len()),
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("slot machine stopped with error", zap.Error(err))
	}
	logger.Info("final balance", zap.Int64("balance", l.Balance()))
}

// sources returns the outcome, animation and confetti random streams. A
// non-zero seed makes all three reproducible.
func sources(seed uint64) (outcomeSrc, animSrc, confettiSrc dice.Source) {
	if seed == 0 {
		return dice.NewCryptoSource(), dice.NewCryptoSource(), dice.NewCryptoSource()
	}
	return dice.NewSeededSource(seed), dice.NewSeededSource(seed + 1), dice.NewSeededSource(seed + 2)
}
