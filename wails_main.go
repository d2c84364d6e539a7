package main

import (
	"context"
	"embed"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	wruntime "github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"
)

//go:embed all:web
var assets embed.FS

// runDesktop opens the viewer window and blocks until it is closed.
func runDesktop(app *App) error {
	return wails.Run(&options.App{
		Title:      "graphfs",
		Width:      1280,
		Height:     860,
		OnStartup:  app.Startup,
		OnShutdown: app.Shutdown,
		Bind:       []interface{}{app},

		AssetServer: &assetserver.Options{
			Assets: assets,
		},
	})
}

func (a *App) Startup(ctx context.Context) {
	a.start(ctx, func(name string, data interface{}) {
		wruntime.EventsEmit(ctx, name, data)
	})
}

func (a *App) Shutdown(ctx context.Context) {
	if a.eng.CancelScan() {
		a.log.Info("scan canceled on shutdown")
	}
}

// PickFolder asks for a folder to scan. It returns "" when the dialog is
// dismissed.
func (a *App) PickFolder() (string, error) {
	root, _, _ := a.eng.Root()
	if root == "" {
		root = a.DefaultPath()
	}
	path, err := wruntime.OpenDirectoryDialog(a.ctx, wruntime.OpenDialogOptions{
		Title:            "Select a folder",
		DefaultDirectory: root,
	})
	if err != nil {
		a.log.Warn("folder dialog", zap.Error(err))
		return "", err
	}
	return path, nil
}
