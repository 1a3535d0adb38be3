package main

import (
	"readlet/internal/chord"
	"readlet/internal/config"
	"readlet/internal/shortcut"
)

// getConfigSnapshot returns a deep-copied config protected by cfgMu.
// All read access to App.cfg should go through this helper.
func (a *App) getConfigSnapshot() config.Config {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return config.Clone(a.cfg)
}

// setConfigSnapshot stores a deep-copied config protected by cfgMu.
// All write access to App.cfg should go through this helper.
func (a *App) setConfigSnapshot(cfg config.Config) {
	a.cfgMu.Lock()
	a.cfg = config.Clone(cfg)
	a.cfgMu.Unlock()
}

// currentPlatform returns the platform family the current config applies to.
func (a *App) currentPlatform() chord.Platform {
	a.cfgMu.RLock()
	defer a.cfgMu.RUnlock()
	return config.ResolvePlatform(a.cfg)
}

func (a *App) currentFormatter() chord.Formatter {
	return chord.NewFormatter(a.currentPlatform())
}

// currentValidator builds a validator from the current platform and
// bare-function-key setting.
func (a *App) currentValidator() *shortcut.Validator {
	a.cfgMu.RLock()
	opts := shortcut.Options{
		Platform:              config.ResolvePlatform(a.cfg),
		AllowBareFunctionKeys: a.cfg.AllowBareFunctionKeys,
	}
	a.cfgMu.RUnlock()
	return shortcut.NewValidator(opts)
}
