package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"DemandCast/internal/catalog"
	"DemandCast/internal/domain/repository"
	domsvc "DemandCast/internal/domain/service"
	"DemandCast/internal/forecast"
	"DemandCast/internal/handler/api"
	"DemandCast/internal/loader"
	mid "DemandCast/internal/middleware"
	"DemandCast/internal/model"
	internalrepo "DemandCast/internal/repository"
	"DemandCast/internal/service/salesfeed"
	"DemandCast/internal/usecase"
	"DemandCast/pkg/cache"
	pkgch "DemandCast/pkg/clickhouse"
	"DemandCast/pkg/config"
	xhttp "DemandCast/pkg/http"
	pkgkafka "DemandCast/pkg/kafka"
	applogger "DemandCast/pkg/logger"
	"DemandCast/pkg/metrics"
	pkgqueue "DemandCast/pkg/queue"
	"DemandCast/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level, format := "info", "json"
	if cfg.Environment == "development" {
		level, format = "debug", "console"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client when either the snapshot
// or the ingest path needs one. Returns nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Data.Source != "clickhouse" && !cfg.Ingest.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS demandcast",
		"CREATE TABLE IF NOT EXISTS demandcast.sales_events (ts DateTime, item_id String, store_id String, qty Float64, event_id String) ENGINE=MergeTree ORDER BY (item_id, store_id, ts)",
		"CREATE TABLE IF NOT EXISTS demandcast.calendar (day UInt32, date Date, wday UInt8, month UInt8, year UInt16, week_of_year UInt8, wm_yr_wk UInt32, has_event_1 UInt8, has_event_2 UInt8, snap_ca UInt8, snap_tx UInt8, snap_wi UInt8) ENGINE=MergeTree ORDER BY day",
		"CREATE TABLE IF NOT EXISTS demandcast.sell_prices (store_id String, item_id String, wm_yr_wk UInt32, sell_price Float64) ENGINE=MergeTree ORDER BY (store_id, item_id, wm_yr_wk)",
		"CREATE TABLE IF NOT EXISTS demandcast.sales_daily (item_id String, dept_id String, cat_id String, store_id String, state_id String, day UInt32, qty Float64) ENGINE=MergeTree ORDER BY (item_id, store_id, day)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideSnapshotSource selects the snapshot backend from config.
func ProvideSnapshotSource(cfg *config.Config, chClient *pkgch.Client, log *applogger.Logger) (repository.SnapshotSource, error) {
	switch cfg.Data.Source {
	case "csv":
		return loader.NewCSVSource(cfg.Data.CalendarPath, cfg.Data.PricesPath, cfg.Data.SalesPath, log), nil
	case "clickhouse":
		if chClient == nil {
			return nil, fmt.Errorf("clickhouse snapshot source requires a client")
		}
		return internalrepo.NewClickHouseSnapshotSource(chClient, log), nil
	default:
		return nil, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}
}

// ProvideCatalog loads the snapshot and builds the in-memory series catalog.
func ProvideCatalog(src repository.SnapshotSource, log *applogger.Logger) (*catalog.Catalog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	snap, err := src.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	cat, err := catalog.Build(snap)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	log.Info("series catalog ready",
		applogger.Int("series", cat.Len()),
		applogger.Int("last_day", cat.LastCalendarDay()))
	return cat, nil
}

// ProvideModel loads the prediction model. A missing model is fatal at startup
// rather than at first request.
func ProvideModel(cfg *config.Config) (domsvc.Predictor, error) {
	switch cfg.Model.Type {
	case "linear":
		return model.LoadLinear(cfg.Model.Path)
	case "http":
		return model.NewHTTPModel(cfg.Model.ServiceURL, cfg.Model.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown model type %q", cfg.Model.Type)
	}
}

// ProvideExtractor creates the feature extractor with the configured
// missing-lag policy.
func ProvideExtractor(cfg *config.Config) (*forecast.Extractor, error) {
	policy, err := forecast.ParseMissingLagPolicy(cfg.Forecast.OnMissingLag)
	if err != nil {
		return nil, err
	}
	return forecast.NewExtractor(policy), nil
}

// ProvideForecaster creates the recursive forecaster over the catalog.
func ProvideForecaster(cat *catalog.Catalog, m domsvc.Predictor, ex *forecast.Extractor) *forecast.Forecaster {
	return forecast.New(cat, m, ex)
}

// ProvideCache selects redis or in-process memory for the forecast cache.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	host, port, err := splitAddr(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix("demandcast"),
	)
	if err != nil {
		return nil, err
	}
	return cache.NewLayeredCache(rc), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideKafkaProducer creates a Kafka producer when brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideForecastPublisher publishes completed forecasts when a topic is set.
func ProvideForecastPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ForecastPublisher {
	if producer == nil || cfg.Kafka.ForecastTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaForecastPublisher(producer, cfg.Kafka.ForecastTopic)
}

// ProvideEventPublisher publishes raw sales events for the kafka ingest backend.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.EventPublisher {
	if producer == nil || cfg.Kafka.SalesTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.SalesTopic)
}

// ProvideStorage creates ClickHouse storage for raw sales events.
func ProvideStorage(chClient *pkgch.Client) repository.Storage {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseStorage(chClient.DB(), "demandcast.sales_events")
}

// ProvideSalesStream creates the POS WebSocket stream when ingest is enabled.
func ProvideSalesStream(cfg *config.Config) repository.SalesStream {
	if !cfg.Ingest.Enabled {
		return nil
	}
	return salesfeed.New(
		cfg.Ingest.APIKey,
		cfg.Ingest.FeedURL,
		cfg.Ingest.Stores,
		cfg.Ingest.ReconnectDelay,
		cfg.Ingest.PingInterval,
	)
}

// ProvideSalesProcessor creates the ingest processor use case.
func ProvideSalesProcessor(
	pub repository.EventPublisher,
	store repository.Storage,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.SalesProcessor {
	if !cfg.Ingest.Enabled {
		return nil
	}
	return usecase.NewSalesProcessor(
		pub,
		store,
		m,
		cfg.Ingest.Backend,
		cfg.Ingest.BatchSize,
		cfg.Ingest.BatchTimeout,
	)
}

// ProvideSalesCollector creates the ingest collector with its pipeline.
func ProvideSalesCollector(
	stream repository.SalesStream,
	processor *usecase.SalesProcessor,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.SalesCollector {
	if !cfg.Ingest.Enabled || stream == nil || processor == nil {
		return nil
	}
	pipe := mid.NewIngestPipeline(processor, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewSalesCollector(stream, processor, m, pipe)
}

// ProvideKafkaConsumer creates the kafka->clickhouse bridge consumer.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Ingest.Enabled || cfg.Ingest.Backend != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaSalesHandler stores consumed sales events in ClickHouse.
func ProvideKafkaSalesHandler(store repository.Storage, m repository.Metrics, cfg *config.Config) *usecase.KafkaSalesHandler {
	if !cfg.Ingest.Enabled || cfg.Ingest.Backend != "kafka" || store == nil {
		return nil
	}
	return usecase.NewKafkaSalesHandler(cfg.Kafka.SalesTopic, store, m)
}

// ProvideForecastService creates the central forecast use case.
func ProvideForecastService(
	cat *catalog.Catalog,
	fc *forecast.Forecaster,
	c cache.Service,
	fpub repository.ForecastPublisher,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.ForecastService {
	return usecase.NewForecastService(
		cat, fc, c, fpub, m, log,
		cfg.Forecast.DefaultHorizon,
		cfg.Forecast.MaxHorizon,
		cfg.Forecast.CacheTTL,
	)
}

// ProvideRedisQueue creates the batch job queue and registers the forecast job.
func ProvideRedisQueue(cfg *config.Config, log *applogger.Logger, svc *usecase.ForecastService) *pkgqueue.RedisQueue {
	if !cfg.Redis.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	q := pkgqueue.NewRedisQueue(log,
		&pkgqueue.QueueConfig{
			Workers:    cfg.Batch.Workers,
			RetryLimit: 3,
			RetryDelay: 10 * time.Second,
		},
		client,
		pkgqueue.WithKeyPrefix("demandcast:"+cfg.Batch.QueueName),
	)
	q.RegisterJob(usecase.NewForecastJob(svc, log))
	return q
}

// ProvideBatchRunner enables bulk forecasting when the job queue exists.
func ProvideBatchRunner(svc *usecase.ForecastService, q *pkgqueue.RedisQueue, log *applogger.Logger) *usecase.BatchRunner {
	if q == nil {
		return nil
	}
	return usecase.NewBatchRunner(svc, q, log)
}

// ProvideHTTPHandler creates the API handler.
func ProvideHTTPHandler(log *applogger.Logger, svc *usecase.ForecastService, batch *usecase.BatchRunner, cfg *config.Config) xhttp.Handler {
	return api.NewForecastEchoHandler(log, svc, batch, cfg.Forecast.RateLimit)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	svc *usecase.ForecastService,
	model domsvc.Predictor,
	collector *usecase.SalesCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSalesHandler,
	q *pkgqueue.RedisQueue,
	chClient *pkgch.Client,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	var mh pkgkafka.MessageHandler
	if kh != nil {
		mh = kh
	}
	app := server.New(cfg, log, handler, svc, model, collector, consumer, mh, q, chClient)
	if collector != nil {
		app.SalesProc = collector.Processor()
	}
	return app
}

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}
