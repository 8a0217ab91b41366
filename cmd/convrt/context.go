package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"convrt/internal/config"
	"convrt/internal/events"
	"convrt/internal/history"
	"convrt/internal/logging"
	"convrt/internal/modelcache"
	"convrt/internal/pipeline"
)

const eventBusCapacity = 2048

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logger *slog.Logger
	bus    *events.Bus
	store  *history.Store
	cache  *modelcache.Cache
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// runtime builds the logger, event bus, and history store shared by a command.
// Log records are teed onto the bus so the bridge can stream them.
func (c *commandContext) runtime(ctx context.Context) (*slog.Logger, *events.Bus, *history.Store, error) {
	if c.logger != nil {
		return c.logger, c.bus, c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	base, err := logging.NewFromConfig(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	bus := events.NewBus(eventBusCapacity)
	logger := logging.TeeLogger(base, events.NewLogHandler(bus, slog.LevelInfo))

	store, err := history.Open(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open history: %w", err)
	}
	if n, err := store.MarkInterrupted(ctx); err != nil {
		logger.Warn("history cleanup failed", logging.Error(err))
	} else if n > 0 {
		logger.Info("marked stale runs interrupted", logging.Int64("count", n))
	}

	c.logger, c.bus, c.store = logger, bus, store
	return logger, bus, store, nil
}

// modelCache builds the shared cache. Outside JSON mode downloads report
// progress on stderr.
func (c *commandContext) modelCache(cmd *cobra.Command) (*modelcache.Cache, error) {
	if c.cache != nil {
		return c.cache, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, _, _, err := c.runtime(cmd.Context())
	if err != nil {
		return nil, err
	}
	var progress modelcache.ProgressFunc
	if !c.jsonOutput() {
		progress = downloadProgress(cmd.ErrOrStderr())
	}
	cache, err := modelcache.NewFromConfig(cfg, logger, progress)
	if err != nil {
		return nil, err
	}
	c.cache = cache
	return cache, nil
}

func (c *commandContext) coordinator(cmd *cobra.Command) (*pipeline.Coordinator, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, bus, store, err := c.runtime(cmd.Context())
	if err != nil {
		return nil, err
	}
	cache, err := c.modelCache(cmd)
	if err != nil {
		return nil, err
	}
	return pipeline.NewFromConfig(cfg, logger, cache, store, bus)
}

func (c *commandContext) close() {
	if c.store != nil {
		_ = c.store.Close()
		c.store = nil
	}
}

func downloadProgress(w io.Writer) modelcache.ProgressFunc {
	colorize := shouldColorize(w)
	return func(name string, written, total int64) {
		line := fmt.Sprintf("Downloading %s: %s", name, humanize.Bytes(uint64(written)))
		if total > 0 {
			line = fmt.Sprintf("%s / %s (%.0f%%)", line, humanize.Bytes(uint64(total)), float64(written)*100/float64(total))
		}
		if colorize {
			fmt.Fprintf(w, "\r%s%s%s", ansiBlue, line, ansiReset)
			if total > 0 && written >= total {
				fmt.Fprintln(w)
			}
			return
		}
		fmt.Fprintln(w, line)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
