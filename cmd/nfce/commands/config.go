package commands

import (
	"errors"
	"log/slog"
	"nfce-backend/lib/configutil"
	"nfce-backend/lib/scrapers/nfce"
	"nfce-backend/lib/telemetry"
	"os"
)

const defaultPort = 8000

type Config struct {
	Port      int              `json:"port"`
	ProxyUrl  string           `json:"proxy_url"`
	CaBundle  string           `json:"ca_bundle"`
	StaticDir string           `json:"static_dir"`
	DumpDir   string           `json:"dump_dir"`
	Telemetry telemetry.Config `json:"telemetry"`
}

// loadConfig reads the config file if there is one and applies the
// environment on top of it.
func loadConfig(path string) (Config, error) {
	config, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no config file, using defaults", "path", path)
	} else if err != nil {
		return Config{}, err
	}

	err = configutil.EnvInt(&config.Port, "PORT")
	if err != nil {
		return Config{}, err
	}
	configutil.EnvString(&config.ProxyUrl, "SEFAZ_PROXY_URL")
	configutil.EnvString(&config.CaBundle, "SEFAZ_CA_BUNDLE")

	if config.Port == 0 {
		config.Port = defaultPort
	}
	if config.StaticDir == "" {
		config.StaticDir = "static"
	}
	return config, nil
}

func (c Config) extractOptions(tel telemetry.API) (nfce.Options, error) {
	opts := nfce.Options{
		Session: nfce.SessionOptions{
			ProxyUrl: c.ProxyUrl,
		},
		Telemetry: tel,
		DumpDir:   c.DumpDir,
	}
	if c.CaBundle != "" {
		pool, err := nfce.LoadCertPool(c.CaBundle)
		if err != nil {
			return nfce.Options{}, err
		}
		opts.Session.RootCAs = pool
	}
	return opts, nil
}
