package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"smart-reader/internal/config"
	"smart-reader/internal/logging"
	"smart-reader/internal/repository"
)

type commandContext struct {
	dbFlag     *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(dbFlag, configFlag *string) *commandContext {
	return &commandContext{
		dbFlag:     dbFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
			os.Setenv("CONFIG_FILE", strings.TrimSpace(*c.configFlag))
		}
		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}
		if c.dbFlag != nil && strings.TrimSpace(*c.dbFlag) != "" {
			cfg.Local.Path = strings.TrimSpace(*c.dbFlag)
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *log.Logger {
	level := "warn"
	if c.config != nil && c.config.Logging.Level == "debug" {
		level = "debug"
	}
	return logging.New(os.Stderr, level)
}

// withLocal opens the device store for the duration of fn.
func (c *commandContext) withLocal(fn func(*repository.LocalProjectRepository) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	local, err := repository.OpenLocalProjectRepository(cfg.Local.Path)
	if err != nil {
		return wrapOpenError(err, cfg.Local.Path)
	}
	defer local.Close()
	return fn(local)
}

func wrapOpenError(err error, path string) error {
	if errors.Is(err, repository.ErrLocalStoreLocked) {
		return fmt.Errorf("open local store: %s is in use; stop the reader server first", path)
	}
	return fmt.Errorf("open local store: %w", err)
}
