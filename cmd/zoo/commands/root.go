// Package commands implements the zoo CLI commands.
package commands

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/docker/model-zoo/pkg/loader"
	"github.com/docker/model-zoo/pkg/logging"
	"github.com/docker/model-zoo/pkg/zoo"
	"github.com/docker/model-zoo/pkg/zoo/catalog"
)

const envPrefix = "ZOO"

// cli holds the state shared by all commands of one invocation.
type cli struct {
	v          *viper.Viper
	configFile string
	log        *logrus.Entry
}

// Execute runs the root command.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd builds the command tree with its own configuration.
func NewRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "zoo",
		Short: "Pretrained image-classification model zoo",
		Long: `zoo builds the keras.applications family of ImageNet classifiers,
fetching pretrained weights from the HuggingFace Hub or an OCI registry mirror
into a local cache.

Examples:
  zoo list
  zoo load ResNet50 MobileNetV2
  zoo inspect EfficientNetB0 --tensors`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default is $HOME/.zoo.yaml)")
	flags.BoolP("verbose", "v", false, "Enable verbose output")
	flags.Bool("log-json", false, "Output logs in JSON format")
	flags.String("cache-dir", "", "Weights cache directory (default is the user cache directory)")
	flags.String("source", zoo.SourceHuggingFace, "Weights source: huggingface or oci")
	flags.String("mirror", "", "OCI registry namespace holding the weights, e.g. registry.example.com/zoo")
	flags.Bool("insecure", false, "Allow plain HTTP for the OCI mirror")
	flags.String("platform", "", "OCI platform to pull, e.g. linux/arm64 (default is the host)")
	flags.String("hf-endpoint", "", "HuggingFace Hub endpoint")
	flags.String("hf-token", "", "HuggingFace access token")
	flags.String("weights", loader.WeightsImageNet, `Weights to load: "imagenet", "none" or a local path`)
	flags.Bool("no-memory-guard", false, "Load weights even if they exceed available memory")
	flags.String("catalog", "", "YAML file replacing the built-in catalog")

	rootCmd.AddCommand(
		newListCmd(c),
		newLoadCmd(c),
		newInspectCmd(c),
		newCacheCmd(c),
		newVersionCmd(),
	)
	return rootCmd
}

// init reads .env files, the config file and the environment, then sets up
// logging. Flags take precedence over the environment, which takes
// precedence over the config file.
func (c *cli) init(cmd *cobra.Command) error {
	loadEnvFiles()

	if c.configFile != "" {
		c.v.SetConfigFile(c.configFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		c.v.AddConfigPath(home)
		c.v.AddConfigPath(".")
		c.v.SetConfigType("yaml")
		c.v.SetConfigName(".zoo")
	}

	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
	if err := c.v.BindPFlags(cmd.Flags()); err != nil {
		return errors.Wrap(err, "binding flags")
	}
	// Accept the variables the HuggingFace tooling uses.
	if err := c.v.BindEnv("hf-token", "ZOO_HF_TOKEN", "HF_TOKEN"); err != nil {
		return errors.Wrap(err, "binding HF_TOKEN")
	}
	if err := c.v.BindEnv("hf-endpoint", "ZOO_HF_ENDPOINT", "HF_ENDPOINT"); err != nil {
		return errors.Wrap(err, "binding HF_ENDPOINT")
	}

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if c.configFile != "" || !errors.As(err, &notFound) {
			return errors.Wrap(err, "reading config file")
		}
	}

	level := "info"
	if c.v.GetBool("verbose") {
		level = "debug"
	}
	if env := os.Getenv("ZOO_LOG_LEVEL"); env != "" {
		level = env
	}
	logger := logging.New(logging.Options{
		Level:  level,
		JSON:   c.v.GetBool("log-json"),
		Output: cmd.ErrOrStderr(),
	})
	c.log = logging.Component(logger, "zoo")
	return nil
}

// loadEnvFiles loads .env then .env.local from the working directory.
// Variables already set in the environment win.
func loadEnvFiles() {
	for _, name := range []string{".env", ".env.local"} {
		_ = godotenv.Load(name)
	}
}

// factoryConfig turns the merged configuration into a zoo.Config.
func (c *cli) factoryConfig(progress io.Writer) (zoo.Config, error) {
	cfg := zoo.Config{
		CacheDir:           c.v.GetString("cache-dir"),
		Source:             c.v.GetString("source"),
		Mirror:             c.v.GetString("mirror"),
		Insecure:           c.v.GetBool("insecure"),
		Platform:           c.v.GetString("platform"),
		HFEndpoint:         c.v.GetString("hf-endpoint"),
		HFToken:            c.v.GetString("hf-token"),
		UserAgent:          "zoo/" + Version,
		DisableMemoryGuard: c.v.GetBool("no-memory-guard"),
		Progress:           progress,
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = zoo.DefaultCacheDir()
	}
	if path := c.v.GetString("catalog"); path != "" {
		cat, err := catalog.LoadFile(filepath.Clean(path))
		if err != nil {
			return zoo.Config{}, errors.Wrapf(err, "loading catalog %s", path)
		}
		cfg.Catalog = cat
	}
	return cfg, nil
}

func (c *cli) newFactory(progress io.Writer) (*zoo.Factory, error) {
	cfg, err := c.factoryConfig(progress)
	if err != nil {
		return nil, err
	}
	f, err := zoo.NewFactoryFromConfig(cfg, c.log)
	if err != nil {
		return nil, errors.Wrap(err, "creating model factory")
	}
	return f, nil
}

func (c *cli) catalog() (*catalog.Catalog, error) {
	path := c.v.GetString("catalog")
	if path == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading catalog %s", path)
	}
	return cat, nil
}

func (c *cli) loadOptions() loader.Options {
	return loader.Options{Weights: c.v.GetString("weights")}
}
