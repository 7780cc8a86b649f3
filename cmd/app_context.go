package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/khanhnv2901/wisafe/internal/client"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// AppContext carries the logger and resolved configuration to subcommands.
type AppContext struct {
	Logger *zap.SugaredLogger
	Config *Config
}

type appContextKey struct{}

var (
	globalAppContext *AppContext
	appContextMu     sync.RWMutex
)

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	appContextMu.Lock()
	globalAppContext = appCtx
	appContextMu.Unlock()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, appCtx))
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if ctx := cmd.Context(); ctx != nil {
		if appCtx, ok := ctx.Value(appContextKey{}).(*AppContext); ok {
			return appCtx
		}
	}
	appContextMu.RLock()
	defer appContextMu.RUnlock()
	return globalAppContext
}

func requireAppContext(cmd *cobra.Command) (*AppContext, error) {
	appCtx := getAppContext(cmd)
	if appCtx == nil || appCtx.Config == nil {
		return nil, fmt.Errorf("application context not initialized")
	}
	return appCtx, nil
}

// newClient builds an API client bound to the configured server and session file.
func (a *AppContext) newClient() *client.Client {
	store := client.NewSessionStore(a.Config.Client.SessionFile)
	return client.New(a.Config.Client.Server, store, client.Options{
		Logger:      a.Logger.Desugar().Named("client"),
		ScanTimeout: a.Config.Client.ScanTimeout,
	})
}

func (a *AppContext) networkCache() *client.NetworkCache {
	return client.NewNetworkCache(filepath.Join(a.Config.DataDir, "networks.json"))
}
