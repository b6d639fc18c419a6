package common

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// Settings holds the server's runtime configuration: bind address, AOF
// location, and (supplemental) metrics listener.
//
// Resolution order, lowest to highest precedence: built-in defaults, the
// config file (if present), environment variables prefixed APP_, then CLI
// flags.
type Settings struct {
	Host        string
	Port        int
	AofPath     string
	MetricsAddr string
}

func defaultSettings() Settings {
	return Settings{
		Host:    "127.0.0.1",
		Port:    25500,
		AofPath: "aof.rdb",
	}
}

// ReadSettings loads Settings from configPath (if it exists), then layers
// environment overrides (APP_HOST, APP_PORT, APP_AOF_PATH, APP_METRICS_ADDR),
// then the process's CLI flags.
func ReadSettings(configPath string, args []string) (Settings, error) {
	s := defaultSettings()

	if configPath != "" {
		if f, err := os.Open(configPath); err == nil {
			defer f.Close()
			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				parseSettingsLine(scanner.Text(), &s)
			}
			if err := scanner.Err(); err != nil {
				return s, fmt.Errorf("settings: scanning %s: %w", configPath, err)
			}
		}
	}

	applyEnvOverrides(&s)

	if err := applyFlags(&s, args); err != nil {
		return s, err
	}

	return s, nil
}

// parseSettingsLine applies one "directive value" line from a config file.
// Unknown directives and comment/blank lines are ignored.
func parseSettingsLine(line string, s *Settings) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return
	}
	switch fields[0] {
	case "host":
		s.Host = fields[1]
	case "port":
		if p, err := strconv.Atoi(fields[1]); err == nil {
			s.Port = p
		}
	case "aof_path":
		s.AofPath = fields[1]
	case "metrics_addr":
		s.MetricsAddr = fields[1]
	}
}

func applyEnvOverrides(s *Settings) {
	if v, ok := os.LookupEnv("APP_HOST"); ok {
		s.Host = v
	}
	if v, ok := os.LookupEnv("APP_PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			s.Port = p
		}
	}
	if v, ok := os.LookupEnv("APP_AOF_PATH"); ok {
		s.AofPath = v
	}
	if v, ok := os.LookupEnv("APP_METRICS_ADDR"); ok {
		s.MetricsAddr = v
	}
}

func applyFlags(s *Settings, args []string) error {
	fs := pflag.NewFlagSet("spacekv-server", pflag.ContinueOnError)
	host := fs.String("host", s.Host, "bind host")
	port := fs.Int("port", s.Port, "bind port")
	aofPath := fs.String("aof-path", s.AofPath, "append-only file path")
	metricsAddr := fs.String("metrics-addr", s.MetricsAddr, "address to serve Prometheus metrics on (empty disables)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	s.Host = *host
	s.Port = *port
	s.AofPath = *aofPath
	s.MetricsAddr = *metricsAddr
	return nil
}

// Addr returns the "host:port" listen address.
func (s Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
