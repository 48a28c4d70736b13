//go:build wireinject
// +build wireinject

package di

import (
	"DemandCast/pkg/config"
	"DemandCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,

		// Snapshot and catalog
		ProvideSnapshotSource,
		ProvideCatalog,

		// Forecasting core
		ProvideModel,
		ProvideExtractor,
		ProvideForecaster,

		// Repositories
		ProvideStorage,
		ProvideForecastPublisher,
		ProvideEventPublisher,
		ProvideSalesStream,

		// Use cases
		ProvideSalesProcessor,
		ProvideSalesCollector,
		ProvideKafkaSalesHandler,
		ProvideForecastService,
		ProvideRedisQueue,
		ProvideBatchRunner,

		// Transport
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
