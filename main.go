package main

import (
	"embed"
	"errors"
	"log/slog"
	"os"

	"readlet/internal/singleinstance"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	// Single-instance check BEFORE any Wails/WebView initialization.
	// Two instances would race on the same config file and key stream port.
	lock, err := singleinstance.TryLock(singleinstance.DefaultLockName())
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		slog.Info("[DEBUG-SINGLE] another instance is already running, exiting")
		return
	}
	if err != nil {
		// Lock creation failed for another reason; run without the guard.
		slog.Warn("[DEBUG-SINGLE] lock creation failed, proceeding without single-instance guard", "error", err)
	}
	if lock != nil {
		defer func() {
			if releaseErr := lock.Release(); releaseErr != nil {
				slog.Warn("[DEBUG-SINGLE] lock release failed", "error", releaseErr)
			}
		}()
	}

	app := NewApp()
	slog.SetDefault(slog.New(app.newSessionLogHandler(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)))

	err = wails.Run(&options.App{
		Title:     "readlet",
		Width:     960,
		Height:    720,
		MinWidth:  480,
		MinHeight: 360,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 250, G: 248, B: 242, A: 1},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []any{
			app,
		},
	})

	if err != nil {
		slog.Error("[DEBUG-SINGLE] wails run failed", "error", err)
	}
}
