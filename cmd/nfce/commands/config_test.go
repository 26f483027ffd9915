package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SEFAZ_PROXY_URL", "")
	t.Setenv("SEFAZ_CA_BUNDLE", "")

	config, err := loadConfig(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, Config{Port: 8000, StaticDir: "static"}, config)
}

func TestLoadConfigEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	err := os.WriteFile(path, []byte(`{
		// overridden below
		port: 9000,
		proxy_url: "http://file-proxy:3128",
		dump_dir: ".dev/resty",
	}`), 0644)
	require.NoError(t, err)

	t.Setenv("PORT", "8081")
	t.Setenv("SEFAZ_PROXY_URL", "http://env-proxy:3128")
	t.Setenv("SEFAZ_CA_BUNDLE", "")

	config, err := loadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 8081, config.Port)
	require.Equal(t, "http://env-proxy:3128", config.ProxyUrl)
	require.Equal(t, ".dev/resty", config.DumpDir)
}

func TestLoadConfigBadPort(t *testing.T) {
	t.Setenv("PORT", "eighty")

	_, err := loadConfig(filepath.Join(t.TempDir(), "config.json5"))
	require.Error(t, err)
}

func TestExtractOptionsMissingCaBundle(t *testing.T) {
	config := Config{CaBundle: filepath.Join(t.TempDir(), "missing.pem")}
	_, err := config.extractOptions(nil)
	require.Error(t, err)
}
