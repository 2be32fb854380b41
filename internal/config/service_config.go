package config

import "time"

type ServiceConfig struct {
	Version   string `mapstructure:"version,omitempty"`
	Build     string `mapstructure:"build,omitempty"`
	BuildDate string `mapstructure:"build_date,omitempty"`
	LogLevel  string `mapstructure:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	// Port and ReadyFile are only used by the serve command.
	Port      int    `mapstructure:"port,omitempty" validate:"omitempty,gte=1,lte=65535"`
	ReadyFile string `mapstructure:"ready_file,omitempty"`
}

type ExportConfig struct {
	ProposalRoot     string               `mapstructure:"proposal_root" validate:"required"`
	Athena           bool                 `mapstructure:"athena"`
	AthenaNameFormat string               `mapstructure:"athena_name_format"`
	DefaultROIs      map[string][]float64 `mapstructure:"default_rois" validate:"dive,len=2"`
	// Retries and RetryDelay wrap one export of a run.
	Retries    int           `mapstructure:"retries" validate:"gte=0"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

type ProcessingConfig struct {
	InfoDir string `mapstructure:"info_dir" validate:"required"`
	// Command runs the external analysis program, see processing.ExecProcessor.
	Command string `mapstructure:"command"`
}

type ObjectStoreConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint" validate:"required_if=Enabled true"`
	Bucket    string `mapstructure:"bucket" validate:"required_if=Enabled true"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Exporter is one of stdout, otlp-http or otlp-grpc.
	Exporter    string `mapstructure:"exporter" validate:"omitempty,oneof=stdout otlp-http otlp-grpc"`
	Endpoint    string `mapstructure:"endpoint"`
	Insecure    bool   `mapstructure:"insecure"`
	ServiceName string `mapstructure:"service_name"`
}

type MetricsConfig struct {
	// TextfilePath is written for the node exporter textfile collector after each command.
	TextfilePath string `mapstructure:"textfile_path"`
}

type Config struct {
	Service     *ServiceConfig     `mapstructure:"service"`
	Catalog     *CatalogConfig     `mapstructure:"catalog" validate:"required"`
	Export      *ExportConfig      `mapstructure:"export" validate:"required"`
	Processing  *ProcessingConfig  `mapstructure:"processing" validate:"required"`
	Database    *map[string]any    `mapstructure:"database"`
	ObjectStore *ObjectStoreConfig `mapstructure:"object_store"`
	Telemetry   *TelemetryConfig   `mapstructure:"telemetry"`
	Metrics     *MetricsConfig     `mapstructure:"metrics"`
}
