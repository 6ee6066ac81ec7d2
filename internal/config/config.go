package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/matthewdavidson09/cloud-attribute-sync/internal/reconcile"
)

type LDAP struct {
	Server             string
	Port               string
	User               string
	Password           string
	BaseDN             string
	UseTLS             bool
	InsecureSkipVerify bool
	Timeout            time.Duration
}

type Graph struct {
	TenantID     string
	ClientID     string
	ClientSecret string
	BaseURL      string
	AuthorityURL string
	Timeout      time.Duration
}

type Sync struct {
	Workers          int
	CallTimeout      time.Duration
	DryRun           bool
	ExportSnapshots  bool
	PushImmutableID  bool
	Delimiter        rune
	CountryTablePath string
	Overwrite        reconcile.OverwritePolicy
	CountryFallback  reconcile.CountryFallback
	ManagerAbsent    reconcile.ManagerAbsentPolicy
}

type Config struct {
	LDAP     LDAP
	Graph    Graph
	Sync     Sync
	LogLevel string
	LogJSON  bool
}

// Load reads envFile (when it exists) into the process environment and
// builds a Config from it. Variables already set in the environment win.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error loading %s: %w", envFile, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function such as os.Getenv.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	var errs []error
	boolVar := func(key string, def bool) bool {
		raw := get(key, "")
		if raw == "" {
			return def
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return def
		}
		return v
	}
	durationVar := func(key string, def time.Duration) time.Duration {
		raw := get(key, "")
		if raw == "" {
			return def
		}
		v, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return def
		}
		return v
	}

	cfg := &Config{
		LDAP: LDAP{
			Server:             get("LDAP_SERVER", ""),
			User:               get("LDAP_USER", ""),
			Password:           get("LDAP_PASSWORD", ""),
			BaseDN:             get("BASE_DN", ""),
			UseTLS:             boolVar("LDAP_TLS", false),
			InsecureSkipVerify: boolVar("LDAP_TLS_INSECURE", false),
			Timeout:            durationVar("LDAP_TIMEOUT", 30*time.Second),
		},
		Graph: Graph{
			TenantID:     get("GRAPH_TENANT_ID", ""),
			ClientID:     get("GRAPH_CLIENT_ID", ""),
			ClientSecret: get("GRAPH_CLIENT_SECRET", ""),
			BaseURL:      get("GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0"),
			AuthorityURL: get("GRAPH_AUTHORITY_URL", "https://login.microsoftonline.com"),
			Timeout:      durationVar("GRAPH_TIMEOUT", 30*time.Second),
		},
		Sync: Sync{
			CallTimeout:      durationVar("SYNC_CALL_TIMEOUT", 30*time.Second),
			DryRun:           boolVar("DRY_RUN", false),
			ExportSnapshots:  boolVar("EXPORT_SNAPSHOTS", false),
			PushImmutableID:  boolVar("PUSH_IMMUTABLE_ID", false),
			CountryTablePath: get("COUNTRY_TABLE", ""),
		},
		LogLevel: get("LOG_LEVEL", "info"),
		LogJSON:  boolVar("LOG_JSON", false),
	}

	defaultPort := "389"
	if cfg.LDAP.UseTLS {
		defaultPort = "636"
	}
	cfg.LDAP.Port = get("LDAP_PORT", defaultPort)

	workers, err := strconv.Atoi(get("SYNC_WORKERS", "4"))
	if err != nil || workers < 1 {
		errs = append(errs, fmt.Errorf("SYNC_WORKERS: must be a positive integer, got %q", getenv("SYNC_WORKERS")))
		workers = 1
	}
	cfg.Sync.Workers = workers

	delim := []rune(get("CSV_DELIMITER", ","))
	if len(delim) != 1 {
		errs = append(errs, fmt.Errorf("CSV_DELIMITER: must be a single character"))
		delim = []rune{','}
	}
	cfg.Sync.Delimiter = delim[0]

	if cfg.Sync.Overwrite, err = reconcile.ParseOverwritePolicy(get("OVERWRITE_POLICY", "")); err != nil {
		errs = append(errs, err)
	}
	if cfg.Sync.CountryFallback, err = reconcile.ParseCountryFallback(get("COUNTRY_FALLBACK", "")); err != nil {
		errs = append(errs, err)
	}
	if cfg.Sync.ManagerAbsent, err = reconcile.ParseManagerAbsentPolicy(get("MANAGER_ABSENT", "")); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// Validate checks that the settings needed to reach both directories are set.
func (c *Config) Validate() error {
	var missing []string
	for _, kv := range [][2]string{
		{"LDAP_SERVER", c.LDAP.Server},
		{"BASE_DN", c.LDAP.BaseDN},
		{"GRAPH_TENANT_ID", c.Graph.TenantID},
		{"GRAPH_CLIENT_ID", c.Graph.ClientID},
		{"GRAPH_CLIENT_SECRET", c.Graph.ClientSecret},
	} {
		if kv[1] == "" {
			missing = append(missing, kv[0])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
