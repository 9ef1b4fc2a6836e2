//go:build wireinject
// +build wireinject

package main

import (
	"xau-data/internal/app"

	"github.com/google/wire"
)

// App holds application dependencies built by Wire.
type App struct {
	Config *app.Config
	Runner *app.Runner
}

// InitializeApp builds App (Config + Runner) via Wire. The returned cleanup
// closes the source fetcher.
func InitializeApp() (*App, func(), error) {
	wire.Build(
		app.ProvideConfig,
		app.ProvideCreds,
		app.ProvideKaggleClient,
		app.ProvideFetcher,
		app.ProvidePublisher,
		app.ProvideRunner,
		wire.Struct(new(App), "Config", "Runner"),
	)
	return nil, nil, nil
}
