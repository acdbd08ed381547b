package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/docker/model-zoo/pkg/loader"
	"github.com/docker/model-zoo/pkg/logging"
	"github.com/docker/model-zoo/pkg/metrics"
	"github.com/docker/model-zoo/pkg/zoo"
	"github.com/docker/model-zoo/pkg/zoo/catalog"
)

var log = logging.New(logging.Options{Output: os.Stdout})

// envConfig is everything the batch reads from the environment.
type envConfig struct {
	factory     zoo.Config
	weights     string
	metricsFile string
	logLevel    string
	logJSON     bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := configFromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	log = logging.New(logging.Options{Level: cfg.logLevel, JSON: cfg.logJSON, Output: os.Stdout})

	log.Infof("MODELS_PATH: %s", cfg.factory.CacheDir)
	log.Infof("Weights: %s from %s", cfg.weights, cfg.factory.Source)

	factory, err := zoo.NewFactoryFromConfig(cfg.factory, logging.Component(log, "zoo"))
	if err != nil {
		log.Fatalf("Failed to create model factory: %v", err)
	}

	recorder := metrics.NewRecorder()
	registry, results := run(ctx, factory, cfg.weights, recorder)

	s := loader.Summarize(results)
	log.WithFields(logrus.Fields{
		"loaded":    s.Loaded,
		"transient": s.Transient,
		"permanent": s.Permanent,
		"canceled":  s.Canceled,
	}).Infof("Loaded %d of %d models", registry.Len(), len(results))

	if cfg.metricsFile != "" {
		if err := recorder.WriteTextfile(cfg.metricsFile); err != nil {
			log.Warnf("Failed to write metrics to %s: %v", cfg.metricsFile, err)
		}
	}
}

// run loads every catalog entry in declaration order.
func run(ctx context.Context, factory *zoo.Factory, weights string, recorder *metrics.Recorder) (*loader.Registry[*zoo.Model], []loader.Result[*zoo.Model]) {
	registry, results := loader.Load[*zoo.Model](ctx, factory,
		factory.Catalog().Names(),
		loader.Options{Weights: weights},
		loader.WithLogger(logging.Component(log, "loader")),
		loader.WithObserver(recorder.Observe),
	)
	recorder.SetRegistrySize(registry.Len())
	return registry, results
}

// configFromEnv reads the batch configuration. Unset variables keep the
// defaults: ImageNet weights from the HuggingFace Hub, cached under the
// user cache directory.
func configFromEnv() (envConfig, error) {
	cfg := envConfig{
		factory: zoo.Config{
			CacheDir:   os.Getenv("MODELS_PATH"),
			Source:     os.Getenv("ZOO_SOURCE"),
			Mirror:     os.Getenv("ZOO_MIRROR"),
			HFToken:    os.Getenv("HF_TOKEN"),
			HFEndpoint: os.Getenv("HF_ENDPOINT"),
		},
		weights:     os.Getenv("ZOO_WEIGHTS"),
		metricsFile: os.Getenv("ZOO_METRICS_FILE"),
		logLevel:    os.Getenv("LOG_LEVEL"),
		logJSON:     os.Getenv("LOG_FORMAT") == "json",
	}
	if cfg.factory.CacheDir == "" {
		cfg.factory.CacheDir = zoo.DefaultCacheDir()
	}
	if cfg.factory.Source == "" {
		cfg.factory.Source = zoo.SourceHuggingFace
	}
	if cfg.weights == "" {
		cfg.weights = loader.WeightsImageNet
	}

	if v := os.Getenv("ZOO_INSECURE_REGISTRY"); v != "" {
		insecure, err := strconv.ParseBool(v)
		if err != nil {
			return envConfig{}, fmt.Errorf("ZOO_INSECURE_REGISTRY: %w", err)
		}
		cfg.factory.Insecure = insecure
	}
	if v := os.Getenv("ZOO_DISABLE_MEMORY_GUARD"); v != "" {
		disable, err := strconv.ParseBool(v)
		if err != nil {
			return envConfig{}, fmt.Errorf("ZOO_DISABLE_MEMORY_GUARD: %w", err)
		}
		cfg.factory.DisableMemoryGuard = disable
	}
	if cfg.logLevel != "" {
		if _, err := logrus.ParseLevel(cfg.logLevel); err != nil {
			return envConfig{}, fmt.Errorf("LOG_LEVEL: %w", err)
		}
	}
	if path := os.Getenv("ZOO_CATALOG"); path != "" {
		c, err := catalog.LoadFile(path)
		if err != nil {
			return envConfig{}, fmt.Errorf("ZOO_CATALOG: %w", err)
		}
		cfg.factory.Catalog = c
	}
	return cfg, nil
}
