package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/runebot/internal/bridge"
	"github.com/aristath/runebot/internal/engine"
	"github.com/aristath/runebot/internal/injector"
	"github.com/aristath/runebot/internal/ipc"
	"github.com/aristath/runebot/internal/persistence"
)

func newRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start a bot and serve the game bridge until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "bot",
				Usage: "Bot to run: mining, woodcutting, combat, fishing or cooking",
			},
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Address the game bridge listens on",
			},
		},
		Action: runBot,
	}
}

func runBot(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// CLI flags override config
	if cmd.IsSet("bot") {
		cfg.Bot = cmd.String("bot")
	}
	if cmd.IsSet("listen") {
		cfg.Bridge.Listen = cmd.String("listen")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := cfg.Logger(os.Stderr)

	storePath, err := cfg.StorePath()
	if err != nil {
		return err
	}
	store, err := persistence.NewSQLiteStore(ctx, storePath)
	if err != nil {
		return err
	}
	defer store.Close()

	// Kill every helper we started, however we leave
	helpers := injector.NewManager(logger)
	defer func() {
		if err := helpers.KillAll(); err != nil {
			logger.Error("failed to kill injector helpers", "error", err)
		}
	}()
	var helper *injector.Process
	if h := cfg.Helper(); h.Enabled() {
		helper, err = helpers.Start(ctx, h)
		if err != nil {
			return err
		}
	}

	client := ipc.NewClient(ipc.Options{
		Address: cfg.Input.Address,
		Retry:   cfg.RetryConfig(),
		Logger:  logger,
	})
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		client.SendExit()
		client.Disconnect()
	}()

	opts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}
	eng, err := engine.New(engine.Deps{Sender: client, Logger: logger}, opts)
	if err != nil {
		return err
	}

	// The tracker outlives the bridge so the final BotStopped is recorded.
	tracker := persistence.NewSessionTracker(store, eng.Bus(), logger)
	defer tracker.Close()
	trackerCtx, stopTracker := context.WithCancel(context.WithoutCancel(ctx))
	shutdown := sync.OnceFunc(func() {
		eng.Close()
		stopTracker()
	})
	defer shutdown()

	// Records queue until Run starts below.
	if err := eng.Start(cfg.Kind()); err != nil {
		return err
	}
	logger.Info("bot started",
		"bot", cfg.Bot,
		"listen", cfg.Bridge.Listen,
		"injector", client.Address(),
		"store", storePath)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tracker.Run(trackerCtx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdown()
		return nil
	})
	if helper != nil {
		g.Go(func() error {
			return watchHelper(gctx, helper)
		})
	}

	server := bridge.NewServer(eng, logger)
	g.Go(func() error {
		return server.ListenAndServe(gctx, cfg.Bridge.Listen)
	})

	err = g.Wait()
	logger.Info("shutdown complete", "reason", eng.Status().Reason)
	return err
}

// watchHelper fails when the injector helper exits before shutdown.
func watchHelper(ctx context.Context, p *injector.Process) error {
	select {
	case <-ctx.Done():
		return nil
	case <-p.Done():
		if err := p.Err(); err != nil {
			return fmt.Errorf("injector helper exited: %w", err)
		}
		return errors.New("injector helper exited")
	}
}
