package config

import (
	"crypto/tls"
	"time"
)

// CatalogConfig points at the Tiled server that holds the beamline's runs.
type CatalogConfig struct {
	URL                string        `mapstructure:"url" validate:"required,url"`
	Beamline           string        `mapstructure:"beamline" validate:"required"`
	APIKey             string        `mapstructure:"api_key"`
	HTTPTimeout        time.Duration `mapstructure:"http_timeout"`
	CACertPath         string        `mapstructure:"ca_cert_path"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	TLSConfig          *tls.Config   // not serialized
}
