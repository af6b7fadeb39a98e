package erp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the CLI configuration
type Config struct {
	ERPVPN          string `yaml:"erp_vpn"`
	ERPURL          string `yaml:"erp_url"`
	APIKey          string `yaml:"api_key"`
	APISecret       string `yaml:"api_secret"`
	NginxCookie     string `yaml:"nginx_cookie"`
	NginxCookieName string `yaml:"nginx_cookie_name"` // Cookie name for reverse proxy auth (default: "auth_cookie")
	Company         string `yaml:"company"`           // Company name shown in reports (optional)
	Brand           string `yaml:"brand"`             // CLI branding shown in TUI (default: "NBS ERP")
	Currency        string `yaml:"currency"`          // Prefix for amounts (optional)
	LogFile         string `yaml:"log_file"`          // Empty disables logging; the TUI owns the terminal
	LogLevel        string `yaml:"log_level"`         // debug, info, warn, error (default: info)

	Source string `yaml:"-"`
}

// ConfigEnv names a config file that overrides the search path.
const ConfigEnv = "ERP_CONFIG"

var configNames = []string{".erp-config.yaml", ".erp-config.yml", ".erp-config"}

func defaultConfig() *Config {
	return &Config{
		NginxCookieName: "auth_cookie",
		Brand:           "NBS ERP",
		LogLevel:        "info",
	}
}

// LoadConfig finds and reads the config file. YAML files are preferred over
// the KEY=value .erp-config format when both exist.
func LoadConfig() (*Config, error) {
	configPath := os.Getenv(ConfigEnv)
	if configPath == "" {
		configPath = findConfig(configDirs())
	}
	if configPath == "" {
		return nil, fmt.Errorf("config file not found. Copy .erp-config.example to .erp-config")
	}
	return LoadConfigFile(configPath)
}

// LoadConfigFile reads one config file, choosing the format by extension.
func LoadConfigFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open config: %w", err)
	}
	defer file.Close()

	config := defaultConfig()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = parseYAMLConfig(file, config)
	default:
		err = parseKeyValueConfig(file, config)
	}
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	config.Source = path

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks that the required settings are present.
func (c *Config) Validate() error {
	if c.ERPURL == "" || c.APIKey == "" || c.APISecret == "" {
		return fmt.Errorf("missing required config: ERP_URL, ERP_API_KEY, ERP_API_SECRET")
	}
	c.ERPURL = strings.TrimRight(c.ERPURL, "/")
	c.ERPVPN = strings.TrimRight(c.ERPVPN, "/")
	return nil
}

func configDirs() []string {
	exeDir := filepath.Dir(os.Args[0])
	return []string{".", "..", exeDir, filepath.Join(exeDir, "..")}
}

func findConfig(dirs []string) string {
	for _, dir := range dirs {
		for _, name := range configNames {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

func parseYAMLConfig(r io.Reader, config *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && err != io.EOF {
		return err
	}
	if config.NginxCookieName == "" {
		config.NginxCookieName = "auth_cookie"
	}
	return nil
}

func parseKeyValueConfig(r io.Reader, config *Config) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), "\"'")

		switch key {
		case "ERP_VPN":
			config.ERPVPN = value
		case "ERP_URL":
			config.ERPURL = value
		case "ERP_API_KEY":
			config.APIKey = value
		case "ERP_API_SECRET":
			config.APISecret = value
		case "NGINX_COOKIE":
			config.NginxCookie = value
		case "NGINX_COOKIE_NAME":
			if value != "" {
				config.NginxCookieName = value
			}
		case "ERP_COMPANY":
			config.Company = value
		case "ERP_BRAND":
			if value != "" {
				config.Brand = value
			}
		case "ERP_CURRENCY":
			config.Currency = value
		case "ERP_LOG_FILE":
			config.LogFile = value
		case "ERP_LOG_LEVEL":
			if value != "" {
				config.LogLevel = value
			}
		}
	}
	return scanner.Err()
}
