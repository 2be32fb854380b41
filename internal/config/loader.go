package config

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	// ConfigPathEnv names an operator supplied config file merged over the bundled one.
	ConfigPathEnv = "CONFIG_PATH"

	defaultProposalRoot = "/nsls2/data/sst/proposals"
	defaultInfoDir      = "/nsls2/data/sst/legacy/ucal/process_info"
)

// DefaultDirs are searched for config.yaml when no directory is given.
var DefaultDirs = []string{"config", "./config", "../../config"}

type EnvMap struct {
	Env struct {
		Mappings map[string]string `mapstructure:"mappings,omitempty"`
	} `mapstructure:"env,omitempty"`
}

type SecretMap struct {
	Secrets struct {
		Dir      string            `mapstructure:"dir,omitempty"`
		Mappings map[string]string `mapstructure:"mappings,omitempty"`
	} `mapstructure:"secrets,omitempty"`
}

// readConfig locates and reads a configuration file using Viper. It searches for
// a file named "{name}.{ext}" in each of the given directories in order; the first
// found file is read. The returned Viper instance contains the parsed config and
// can be used for further unmarshaling or env binding.
//
// Parameters:
//   - logger: Logger for config load messages (success and failure).
//   - name: Config file base name without extension (e.g., "config").
//   - ext: Config file extension/type (e.g., "yaml"); used by Viper as config type.
//   - dirs: One or more directories to search for the file; first match wins.
//
// Returns:
//   - *viper.Viper: Viper instance with the config loaded, or a new Viper if no file was read.
//   - error: Non-nil if no config file was found in any dir or if reading failed.
func readConfig(logger *slog.Logger, name string, ext string, dirs ...string) (*viper.Viper, error) {
	logger.Info("Reading the configuration file", "file", fmt.Sprintf("%s.%s", name, ext), "dirs", fmt.Sprintf("%v", dirs))

	configValues := viper.New()

	configValues.SetConfigName(name) // name of config file (without extension)
	configValues.SetConfigType(ext)  // REQUIRED if the config file does not have the extension in the name
	for _, dir := range dirs {
		configValues.AddConfigPath(dir)
	}
	err := configValues.ReadInConfig() // Find and read the config file

	if err != nil {
		logger.Error("Failed to read the configuration file", "file", fmt.Sprintf("%s.%s", name, ext), "dirs", fmt.Sprintf("%v", dirs), "error", err.Error())
	} else {
		logger.Info("Read the configuration file", "file", configValues.ConfigFileUsed())
	}

	return configValues, err
}

// mergeOperatorConfig merges the file named by CONFIG_PATH over the bundled
// values. A secrets section in the operator file replaces the bundled one.
func mergeOperatorConfig(logger *slog.Logger, configValues *viper.Viper) (*viper.Viper, error) {
	path := os.Getenv(ConfigPathEnv)
	if path == "" {
		return configValues, nil
	}
	operator := viper.New()
	operator.SetConfigFile(path)
	if err := operator.ReadInConfig(); err != nil {
		logger.Error("Failed to read the operator configuration file", "file", path, "error", err.Error())
		return nil, err
	}
	settings := configValues.AllSettings()
	if operator.IsSet("secrets") {
		delete(settings, "secrets")
	}
	merged := viper.New()
	if err := merged.MergeConfigMap(settings); err != nil {
		return nil, err
	}
	if err := merged.MergeConfigMap(operator.AllSettings()); err != nil {
		return nil, err
	}
	logger.Info("Merged the operator configuration file", "file", path)
	return merged, nil
}

func setDefaults(configValues *viper.Viper) {
	configValues.SetDefault("export.proposal_root", defaultProposalRoot)
	configValues.SetDefault("export.athena_name_format", "scan_{scan}.dat")
	configValues.SetDefault("export.retries", 2)
	configValues.SetDefault("export.retry_delay", "10s")
	configValues.SetDefault("processing.info_dir", defaultInfoDir)
	configValues.SetDefault("catalog.http_timeout", "30s")
	configValues.SetDefault("telemetry.exporter", "stdout")
	configValues.SetDefault("telemetry.service_name", "ucal-export")
}

// LoadConfig loads configuration using a two-tier system with Viper. This implements
// a sophisticated loading strategy that supports cascading configuration values and
// multiple sources.
//
// Configuration loading order (later sources override earlier ones):
//  1. config.yaml (config/config.yaml) - Configuration loaded first
//  2. CONFIG_PATH - An operator mounted file merged over config.yaml
//  3. Environment variables - Mapped via env.mappings configuration
//  4. Secrets from files - Mapped via secrets.mappings with secrets.dir
//
// Configuration supports:
//   - Environment variable mapping: Define in env.mappings (e.g., TILED_URL → catalog.url)
//   - Secrets from files: Define in secrets.mappings with secrets.dir (e.g., /tmp/db_password → database.password)
//   - Optional secrets: Append :optional to the secret file name to mark it as optional.
//     If an optional secret file doesn't exist, no error is logged and the configuration
//     continues loading without that secret value.
//
// Example configuration structure:
//
//	env:
//	  mappings:
//	    tiled_url: catalog.url
//	secrets:
//	  dir: /tmp
//	  mappings:
//	    db_password: database.password
//	    tiled_api_key:optional: catalog.api_key
//
// Parameters:
//   - logger: The logger for configuration loading messages
//   - dirs: The directories searched for config.yaml, DefaultDirs when empty
//
// Returns:
//   - *Config: The loaded and validated configuration with all sources applied
//   - error: An error if configuration cannot be loaded or is invalid
func LoadConfig(logger *slog.Logger, version string, build string, buildDate string, dirs ...string) (*Config, error) {
	if len(dirs) == 0 {
		dirs = DefaultDirs
	}
	configValues, err := readConfig(logger, "config", "yaml", dirs...)
	if err != nil {
		return nil, err
	}
	if configValues, err = mergeOperatorConfig(logger, configValues); err != nil {
		return nil, err
	}
	setDefaults(configValues)

	// set up the secrets from the secrets directory
	secrets := SecretMap{}
	if err := configValues.Unmarshal(&secrets); err != nil {
		return nil, err
	}
	if secrets.Secrets.Dir != "" {
		// check that the secrets directory exists
		if _, err := os.Stat(secrets.Secrets.Dir); !os.IsNotExist(err) {
			for fileName, fieldName := range secrets.Secrets.Mappings {
				// the secret file name can be optional by appending :optional to the file name
				optional := strings.HasSuffix(fileName, ":optional")
				if optional {
					fileName = strings.TrimSuffix(fileName, ":optional")
				}
				secret, err := getSecret(secrets.Secrets.Dir, fileName, optional)
				if err != nil {
					// log the error and fail the startup (by returning the error)
					logger.Error("Failed to read secret file", "file", fmt.Sprintf("%s/%s", secrets.Secrets.Dir, fileName), "error", err.Error())
					return nil, err
				}
				if secret != "" {
					configValues.Set(fieldName, strings.TrimSpace(secret))
				}
			}
		}
	}
	// set up the environment variable mappings
	envMappings := EnvMap{}
	if err := configValues.Unmarshal(&envMappings); err != nil {
		return nil, err
	}
	for envName, field := range envMappings.Env.Mappings {
		if err := configValues.BindEnv(field, strings.ToUpper(envName)); err != nil {
			return nil, err
		}
		logger.Info("Mapped environment variable", "field_name", field, "env_name", envName)
	}

	conf := Config{}
	if err := configValues.Unmarshal(&conf); err != nil {
		return nil, err
	}
	if conf.Service == nil {
		conf.Service = &ServiceConfig{}
	}

	// set the version, build, and build date
	conf.Service.Version = version
	conf.Service.Build = build
	conf.Service.BuildDate = buildDate

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(&conf); err != nil {
		logger.Error("Invalid configuration", "error", err.Error())
		return nil, err
	}
	if err := conf.Catalog.loadTLS(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// loadTLS builds the TLS configuration of the catalog client.
func (c *CatalogConfig) loadTLS() error {
	if c.CACertPath == "" && !c.InsecureSkipVerify {
		return nil
	}
	tlsConfig := &tls.Config{InsecureSkipVerify: c.InsecureSkipVerify} // #nosec G402 -- operator opt-in
	if c.CACertPath != "" {
		pem, err := os.ReadFile(c.CACertPath)
		if err != nil {
			return fmt.Errorf("read catalog CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return fmt.Errorf("no certificates found in %s", c.CACertPath)
		}
		tlsConfig.RootCAs = pool
	}
	c.TLSConfig = tlsConfig
	return nil
}

// getSecret reads a secret from a file and returns the value as a string.
// If the file does not exist and optional is false, it returns the error.
// If the file does not exist and optional is true, it silently returns an empty string.
//
// Parameters:
//   - secretsDir: The directory containing the secret files
//   - secretName: The name of the secret file
//   - optional: If true, missing files won't generate errors
//
// Returns:
//   - string: The value of the secret as a string, or empty string if an optional file doesn't exist
func getSecret(secretsDir string, secretName string, optional bool) (string, error) {
	// this is the full name of the secrets file to read
	secret, err := os.ReadFile(fmt.Sprintf("%s/%s", secretsDir, secretName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && optional {
			return "", nil
		}
		return "", err
	}
	return string(secret), nil
}
