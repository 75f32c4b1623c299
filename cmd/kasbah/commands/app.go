package commands

import (
	"github.com/bryanchriswhite/kasbah/internal/capture"
	"github.com/bryanchriswhite/kasbah/internal/config"
	"github.com/bryanchriswhite/kasbah/internal/controller"
	"github.com/bryanchriswhite/kasbah/internal/history"
	"github.com/bryanchriswhite/kasbah/internal/logger"
	"github.com/bryanchriswhite/kasbah/internal/save"
	"github.com/spf13/viper"
)

// loadConfig reads the config file and re-initialises logging from it.
// Flag overrides are applied here and never written back.
func loadConfig() (*config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, err
	}

	level := configMgr.Get().LogLevel
	if viper.IsSet("log_level") && viper.GetString("log_level") != "" {
		level = viper.GetString("log_level")
	}
	logger.Init(level, true)

	logger.WithComponent("cli").Debug().
		Str("path", configMgr.GetConfigPath()).
		Str("log_level", level).
		Msg("Configuration loaded")
	return configMgr, nil
}

// serverPort returns the --port override or the configured port
func serverPort(cfg *config.Config) int {
	if viper.IsSet("server_port") {
		if port := viper.GetInt("server_port"); port > 0 {
			return port
		}
	}
	return cfg.ServerPort
}

// newService connects to GNOME Shell and, when enabled, sets up the
// screenshot tool as fallback.
func newService(cfg *config.Config) *capture.Router {
	log := logger.WithComponent("cli")

	var shell capture.Service
	if s, err := capture.NewShell(); err != nil {
		log.Debug().Err(err).Msg("Session bus unavailable")
	} else {
		shell = s
	}

	var fallbacks []capture.Service
	if cfg.Capture.FallbackTool {
		fallbacks = append(fallbacks, capture.NewTool(cfg.Capture.ToolPath))
	}
	return capture.NewRouter(shell, fallbacks...)
}

// newController wires the capture service to the persisted settings. The
// caller closes the returned service.
func newController(configMgr *config.Manager) (*controller.Controller, capture.Service) {
	svc := newService(configMgr.Get())
	ctrl := controller.New(svc, configMgr, controller.WithTargetPath(save.CachePath()))
	return ctrl, svc
}

// openHistory opens the history database when history is enabled. A nil
// store means history is off or unavailable.
func openHistory(cfg *config.Config) *history.Store {
	if !cfg.Save.History {
		return nil
	}
	store, err := history.Open(history.DefaultPath())
	if err != nil {
		logger.WithComponent("cli").Warn().Err(err).Msg("Capture history unavailable")
		return nil
	}
	return store
}
