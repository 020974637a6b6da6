package cli

import (
	"context"
	"fmt"

	"github.com/dshills/llmflow/pkg/models"
	"github.com/dshills/llmflow/pkg/storage"
	"go.uber.org/zap"
)

// openProviderStore opens the model registry database named by the config
func (o *Options) openProviderStore(ctx context.Context) (*storage.SQLProviderStore, error) {
	driver, err := storage.ParseDriver(o.Config.Registry.Driver)
	if err != nil {
		return nil, err
	}
	store, err := storage.OpenProviderStore(ctx, driver, o.Config.DatabaseDSN(o.ConfigDir))
	if err != nil {
		return nil, fmt.Errorf("failed to open model registry: %w", err)
	}
	o.Logger.Debug("model registry opened", zap.String("driver", string(driver)))
	return store, nil
}

// providers returns the registry providers followed by any declared in
// config.yaml
func (o *Options) providers(ctx context.Context) ([]models.Provider, error) {
	store, err := o.openProviderStore(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	return models.Chain{store, models.StaticList(o.Config.Providers)}.ListProviders(ctx)
}

func (o *Options) repository() (*storage.FilesystemWorkflowRepository, error) {
	return storage.NewFilesystemWorkflowRepository(o.ConfigDir)
}

func (o *Options) credentials() storage.CredentialVault {
	return storage.NewKeyringVault(o.Logger)
}
