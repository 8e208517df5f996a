package main

import (
	"time"

	"github.com/alecthomas/kong"
)

// Config holds the tenantd flags. Command line arguments win over
// environment variables.
type Config struct {
	HTTPAddr        string        `help:"Address:port of the HTTP server" env:"TENANTS_HTTP_ADDR" default:":8080"`
	HostFile        string        `help:"Host configuration file (.env, .toml, .yaml, .json, with an optional .secret suffix)" env:"TENANTS_HOST_FILE"`
	Tenants         string        `help:"Glob matching one configuration file per tenant" env:"TENANTS_GLOB" default:"config/tenants/*"`
	KeyFile         string        `help:"Key file used to decrypt .secret configuration files" env:"TENANTS_KEY_FILE"`
	Migrate         bool          `help:"Apply the tenant schema when a tenant database connects" env:"TENANTS_MIGRATE"`
	Responder       string        `help:"Responder for rejected tenant requests" env:"TENANTS_RESPONDER" default:"json" enum:"json,text"`
	LogLevel        string        `help:"Log level: debug, info, warn, error" env:"TENANTS_LOG_LEVEL" default:"info"`
	LogFormat       string        `help:"Log format: console, json" env:"TENANTS_LOG_FORMAT" default:"console" enum:"console,json"`
	ShutdownTimeout time.Duration `help:"Grace period for in-flight HTTP requests on shutdown" env:"TENANTS_SHUTDOWN_TIMEOUT" default:"15s"`
}

// Parse reads the config from args and the environment.
func Parse(args []string) (*Config, error) {
	config := &Config{}
	parser, err := kong.New(config,
		kong.Name("tenantd"),
		kong.Description("Serves host-routed tenants with per-tenant services."),
	)
	if err != nil {
		return nil, err
	}
	if _, err := parser.Parse(args); err != nil {
		return nil, err
	}
	return config, nil
}
