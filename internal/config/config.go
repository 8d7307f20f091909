package config

import (
	"time"

	pginfra "github.com/pulsewatch/pulsewatch/internal/repository/postgres"
)

type HTTP struct {
	Addr string `mapstructure:"addr"`
	// PublicURL is the externally reachable base used to build ping URLs
	// embedded in notification payloads.
	PublicURL string `mapstructure:"public_url"`
}

type Sweep struct {
	Interval time.Duration `mapstructure:"interval"`
}

type Probe struct {
	Interval   time.Duration `mapstructure:"interval"`
	BatchLimit int           `mapstructure:"batch_limit"`
	Timeout    time.Duration `mapstructure:"timeout"`
	UserAgent  string        `mapstructure:"user_agent"`
}

type Webhook struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type SMTP struct {
	Addr       string        `mapstructure:"addr"`
	From       string        `mapstructure:"from"`
	User       string        `mapstructure:"user"`
	Password   string        `mapstructure:"password"`
	UseTLS     bool          `mapstructure:"use_tls"`
	Timeout    time.Duration `mapstructure:"timeout"`
	SubjPrefix string        `mapstructure:"subj_prefix"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	ServiceName  string  `mapstructure:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Config struct {
	DB      pginfra.Config `mapstructure:"db"`
	HTTP    HTTP           `mapstructure:"http"`
	Sweep   Sweep          `mapstructure:"sweep"`
	Probe   Probe          `mapstructure:"probe"`
	Webhook Webhook        `mapstructure:"webhook"`
	SMTP    SMTP           `mapstructure:"smtp"`
	Server  Server         `mapstructure:"server"`
	OTEL    OTEL           `mapstructure:"otel"`
	Log     Log            `mapstructure:"log"`
}
