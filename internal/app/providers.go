package app

import (
	"context"

	chcfg "chartmentor/internal/config"
)

type appBuilderDeps interface {
	Build(context.Context) (*App, error)
}

func provideAppFromBuilder(b appBuilderDeps, ctx context.Context) (*App, error) {
	return b.Build(ctx)
}

func provideAppBuilder(cfg *chcfg.Config) *AppBuilder {
	return NewAppBuilder(cfg)
}
