// Package config resolves the weed-client settings from flags, WEED_*
// environment variables and an optional YAML file, in that order of
// precedence.
package config

import (
	"log/slog"
	"strings"
	"time"

	"eddisonso.com/go-weed/pkg/weedlog"
	weed "eddisonso.com/go-weed/pkg/go-weed-sdk"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys shared by the config file, the environment and the command line.
const (
	KeyMaster      = "master"
	KeyTimeout     = "timeout"
	KeyPublicURL   = "public-url"
	KeyScheme      = "scheme"
	KeySigningKey  = "signing-key"
	KeyTokenTTL    = "token-ttl"
	KeyJournalDir  = "journal-dir"
	KeyLogLevel    = "log-level"
	KeyLogFormat   = "log-format"
	KeyLogFile     = "log-file"
	KeyCollection  = "collection"
	KeyReplication = "replication"
	KeyDataCenter  = "data-center"
)

const (
	envPrefix      = "WEED"
	configName     = ".weed-client"
	defaultJournal = "~/.weed-client/journal"
)

// Config is the resolved client configuration.
type Config struct {
	Master     string
	Timeout    time.Duration
	PublicURL  bool
	Scheme     string
	SigningKey string
	TokenTTL   time.Duration
	JournalDir string

	LogLevel  slog.Level
	LogFormat string
	LogFile   string

	// Defaults applied to assignments.
	Collection  string
	Replication string
	DataCenter  string

	// File is the config file that was read, if any.
	File string
}

// Load resolves the configuration. cfgFile, when set, must exist; otherwise
// ~/.weed-client.yaml is read if present. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	// Private viper instance so importers keep their global one.
	v := viper.New()

	v.SetDefault(KeyMaster, "localhost:9333")
	v.SetDefault(KeyTimeout, 60*time.Second)
	v.SetDefault(KeyScheme, "http")
	v.SetDefault(KeyTokenTTL, 10*time.Second)
	v.SetDefault(KeyJournalDir, defaultJournal)
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "text")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, errors.Wrap(err, "failed to bind flags")
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to load config %s", cfgFile)
		}
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, errors.Wrap(err, "failed to locate home directory")
		}
		v.AddConfigPath(home)
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "failed to load config")
			}
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	level, err := weedlog.ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	journalDir, err := homedir.Expand(v.GetString(KeyJournalDir))
	if err != nil {
		return nil, errors.Wrap(err, "invalid journal directory")
	}
	cfg := &Config{
		Master:      v.GetString(KeyMaster),
		Timeout:     v.GetDuration(KeyTimeout),
		PublicURL:   v.GetBool(KeyPublicURL),
		Scheme:      v.GetString(KeyScheme),
		SigningKey:  v.GetString(KeySigningKey),
		TokenTTL:    v.GetDuration(KeyTokenTTL),
		JournalDir:  journalDir,
		LogLevel:    level,
		LogFormat:   v.GetString(KeyLogFormat),
		LogFile:     v.GetString(KeyLogFile),
		Collection:  v.GetString(KeyCollection),
		Replication: v.GetString(KeyReplication),
		DataCenter:  v.GetString(KeyDataCenter),
		File:        v.ConfigFileUsed(),
	}
	if cfg.Master == "" {
		return nil, errors.New("master address is required")
	}
	if cfg.Timeout <= 0 {
		return nil, errors.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.Replication != "" {
		if _, err := weed.ParseReplicaPlacement(cfg.Replication); err != nil {
			return nil, errors.Wrap(err, "invalid replication")
		}
	}
	return cfg, nil
}

// ClientOptions translates the configuration into SDK options.
func (c *Config) ClientOptions(logger *slog.Logger) []weed.Option {
	opts := []weed.Option{
		weed.WithTimeout(c.Timeout),
		weed.WithScheme(c.Scheme),
		weed.WithLogger(logger),
	}
	if c.PublicURL {
		opts = append(opts, weed.WithPublicURL())
	}
	if c.SigningKey != "" {
		opts = append(opts, weed.WithSigningKey([]byte(c.SigningKey)), weed.WithTokenTTL(c.TokenTTL))
	}
	return opts
}

// AssignDefaults returns the assignment options implied by the configuration.
func (c *Config) AssignDefaults() weed.AssignOptions {
	return weed.AssignOptions{
		Collection:  c.Collection,
		Replication: c.Replication,
		DataCenter:  c.DataCenter,
	}
}
