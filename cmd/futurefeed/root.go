// ABOUTME: Root Cobra command and shared state for the futurefeed CLI.
// ABOUTME: Loads config, opens the cache backend, and wires the feed controller, mutation engine, and follow store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/2389-research/futurefeed/internal/api"
	"github.com/2389-research/futurefeed/internal/cache"
	"github.com/2389-research/futurefeed/internal/config"
	"github.com/2389-research/futurefeed/internal/feed"
	"github.com/2389-research/futurefeed/internal/follow"
	"github.com/2389-research/futurefeed/internal/logging"
	"github.com/2389-research/futurefeed/internal/mutation"
	"github.com/2389-research/futurefeed/internal/notice"
	"github.com/2389-research/futurefeed/internal/tempid"
)

var globalConfig *config.Config
var globalBackend cache.Backend
var globalController *feed.Controller
var globalEngine *mutation.Engine
var globalFollows *follow.Store

var rootCmd = &cobra.Command{
	Use:   "futurefeed",
	Short: "Feed sync and optimistic posting for FutureFeed",
	Long: `
 ___  _  _  ___  _  _  ___  ___  ___  ___  ___  ___
| __|| || ||_ _|| || || _ \| __|| __|| __|| __||   \
| _| | \/ | | | | \/ ||   /| _| | _| | _| | _| | |) |
|_|   \__/  |_|  \__/ |_|_\|___||_|  |___||___||___/

Read FutureFeed timelines, like, bookmark, reshare, comment, and post
from the terminal. Pages are cached locally with a short TTL.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "setup" {
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		globalConfig = cfg

		if err := logging.Init(cfg.Logging); err != nil {
			return fmt.Errorf("failed to initialise logging: %w", err)
		}

		ctx := cmd.Context()
		backend, err := cache.OpenBackend(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		globalBackend = backend

		// cache maintenance works without a session
		if cmd.Parent() != nil && cmd.Parent().Name() == "cache" {
			return nil
		}

		if !cfg.HasSession() {
			return fmt.Errorf("not configured - run 'futurefeed setup' first")
		}

		var cacheOpts []cache.Option
		ttl, err := cfg.GetCacheTTL()
		if err != nil {
			return err
		}
		if ttl > 0 {
			cacheOpts = append(cacheOpts, cache.WithTTL(ttl))
		}

		client, err := api.NewClient(cfg.API.URL, cfg.GetCookieName(), cfg.API.Session,
			api.WithStrictDelete(cfg.StrictDelete()))
		if err != nil {
			return fmt.Errorf("failed to create api client: %w", err)
		}

		banner := notice.New(notice.DefaultDuration)
		banner.OnChange(func(msg string) {
			if msg != "" {
				fmt.Fprintln(os.Stderr, errorStyle.Render("! "+msg))
			}
		})

		dir := feed.NewDirectory(client, backend, cacheOpts...)
		if _, err := dir.LoadCurrentUser(ctx); err != nil {
			logging.WithComponent("cli").Warn("current user unavailable", zap.Error(err))
		}

		followPath, err := cfg.GetFollowStatePath()
		if err != nil {
			return fmt.Errorf("failed to resolve follow state path: %w", err)
		}
		follows := follow.NewStore(client, follow.NewFilePersister(followPath),
			follow.WithBanner(banner), follow.WithRoster(dir.Roster))
		follows.Hydrate(ctx)
		if err := follows.WaitHydrated(ctx); err != nil {
			return fmt.Errorf("failed to load follow state: %w", err)
		}
		globalFollows = follows

		globalController = feed.NewController(client, feed.NewStore(), dir, backend, banner, feed.Options{
			PageSize:     cfg.GetPageSize(),
			Followed:     follows.FollowingIDs,
			CacheOptions: cacheOpts,
		})
		globalEngine = mutation.NewEngine(client, globalController, tempid.New())

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if globalBackend != nil {
			_ = globalBackend.Close()
			globalBackend = nil
		}
		logging.Sync()
		return nil
	},
}
