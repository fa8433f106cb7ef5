package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dl-alexandre/sheetmirror/internal/types"
	"github.com/dl-alexandre/sheetmirror/internal/utils"
	"github.com/joho/godotenv"
)

const (
	// ConfigFileName is the name of the config file
	ConfigFileName = "config.json"
	// EnvPrefix is the prefix for environment variables
	EnvPrefix = "SHEETMIRROR_"
	// DotEnvFile is loaded from the working directory before the environment is read
	DotEnvFile = ".env"
)

const redactedValue = "********"

// Config holds application configuration
type Config struct {
	// SpreadsheetID identifies the sheet that drives the mirror
	SpreadsheetID string `json:"spreadsheetId"`
	// SheetRange is the A1 range holding folder/video/image/name rows
	SheetRange string `json:"sheetRange"`

	RecordsRange      string `json:"recordsRange"`
	RecordsCollection string `json:"recordsCollection"`
	RecordsEnabled    bool   `json:"recordsEnabled"`
	RecordsDBPath     string `json:"recordsDBPath"`

	ServiceAccountKeyFile string `json:"serviceAccountKeyFile"`
	ServiceAccountKeyJSON string `json:"serviceAccountKeyJSON,omitempty"`

	FTPHost     string `json:"ftpHost"`
	FTPPort     int    `json:"ftpPort"`
	FTPUser     string `json:"ftpUser"`
	FTPPassword string `json:"ftpPassword,omitempty"`
	// FTPPasswordKeyring reads the FTP password from the secret store instead of the config
	FTPPasswordKeyring bool `json:"ftpPasswordKeyring"`
	FTPTLS             bool `json:"ftpTLS"`
	FTPTimeoutSeconds  int  `json:"ftpTimeoutSeconds"`

	// PollIntervalSeconds is the delay between the end of one run and the start of the next
	PollIntervalSeconds int `json:"pollIntervalSeconds"`
	// RunTimeoutSeconds bounds a single run; 0 disables the bound
	RunTimeoutSeconds int `json:"runTimeoutSeconds"`
	// Concurrency is the number of rows mirrored in parallel
	Concurrency int `json:"concurrency"`

	// MaxRetries is the maximum number of retries for API calls
	MaxRetries int `json:"maxRetries"`
	// RetryBaseDelay is the base delay for exponential backoff in milliseconds
	RetryBaseDelay int `json:"retryBaseDelay"`

	HealthAddr string `json:"healthAddr"`
	// LogLevel sets the logging verbosity (quiet, normal, verbose, debug)
	LogLevel   string `json:"logLevel"`
	LogFile    string `json:"logFile"`
	ScratchDir string `json:"scratchDir"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		SheetRange:          utils.DefaultSheetRange,
		RecordsRange:        utils.DefaultRecordsRange,
		RecordsCollection:   utils.DefaultRecordsCollection,
		FTPPort:             utils.DefaultFTPPort,
		FTPTimeoutSeconds:   utils.DefaultFTPTimeoutSeconds,
		PollIntervalSeconds: utils.DefaultPollIntervalSeconds,
		Concurrency:         utils.DefaultConcurrency,
		MaxRetries:          utils.DefaultMaxRetries,
		RetryBaseDelay:      utils.DefaultRetryDelayMs,
		HealthAddr:          utils.DefaultHealthAddr,
		LogLevel:            "normal",
	}
}

// Load loads configuration with precedence: env vars (.env included) > config file > defaults.
// An empty path means the default config file location.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.loadFromFile(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Existing environment variables win over .env entries.
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", DotEnvFile, err)
	}

	cfg.loadFromEnv()
	cfg.applyDerivedDefaults(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, c)
}

// envString returns the first non-empty variable among names
func envString(names ...string) (string, bool) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v, true
		}
	}
	return "", false
}

func envInt(target *int, names ...string) {
	if v, ok := envString(names...); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*target = n
		}
	}
}

func envBool(target *bool, names ...string) {
	if v, ok := envString(names...); ok {
		*target = parseBool(v)
	}
}

func envStr(target *string, names ...string) {
	if v, ok := envString(names...); ok {
		*target = v
	}
}

// loadFromEnv applies SHEETMIRROR_* variables, then the legacy unprefixed names
func (c *Config) loadFromEnv() {
	envStr(&c.SpreadsheetID, EnvPrefix+"SPREADSHEET_ID", "SHEET_ID")
	envStr(&c.SheetRange, EnvPrefix+"SHEET_RANGE")
	envStr(&c.RecordsRange, EnvPrefix+"RECORDS_RANGE")
	envStr(&c.RecordsCollection, EnvPrefix+"RECORDS_COLLECTION")
	envBool(&c.RecordsEnabled, EnvPrefix+"RECORDS_ENABLED")
	envStr(&c.RecordsDBPath, EnvPrefix+"RECORDS_DB_PATH")
	envStr(&c.ServiceAccountKeyFile, EnvPrefix+"SERVICE_ACCOUNT_KEY_FILE", "GOOGLE_APPLICATION_CREDENTIALS")
	envStr(&c.ServiceAccountKeyJSON, EnvPrefix+"SERVICE_ACCOUNT_KEY", "GOOGLE_SERVICE_ACCOUNT_KEY")
	envStr(&c.FTPHost, EnvPrefix+"FTP_HOST", "FTP_HOST")
	envInt(&c.FTPPort, EnvPrefix+"FTP_PORT", "FTP_PORT")
	envStr(&c.FTPUser, EnvPrefix+"FTP_USER", "FTP_USERNAME")
	envStr(&c.FTPPassword, EnvPrefix+"FTP_PASSWORD", "FTP_PASSWORD")
	envBool(&c.FTPPasswordKeyring, EnvPrefix+"FTP_PASSWORD_KEYRING")
	envBool(&c.FTPTLS, EnvPrefix+"FTP_TLS")
	envInt(&c.FTPTimeoutSeconds, EnvPrefix+"FTP_TIMEOUT")
	envInt(&c.PollIntervalSeconds, EnvPrefix+"POLL_INTERVAL")
	envInt(&c.RunTimeoutSeconds, EnvPrefix+"RUN_TIMEOUT")
	envInt(&c.Concurrency, EnvPrefix+"CONCURRENCY")
	envInt(&c.MaxRetries, EnvPrefix+"MAX_RETRIES")
	envInt(&c.RetryBaseDelay, EnvPrefix+"RETRY_BASE_DELAY")
	envStr(&c.HealthAddr, EnvPrefix+"HEALTH_ADDR")
	if c.HealthAddr == utils.DefaultHealthAddr {
		if port, ok := envString("PORT"); ok {
			c.HealthAddr = ":" + port
		}
	}
	envStr(&c.LogLevel, EnvPrefix+"LOG_LEVEL")
	envStr(&c.LogFile, EnvPrefix+"LOG_FILE")
	envStr(&c.ScratchDir, EnvPrefix+"SCRATCH_DIR")
}

func (c *Config) applyDerivedDefaults(configDir string) {
	if c.RecordsDBPath == "" {
		c.RecordsDBPath = filepath.Join(configDir, "records.db")
	}
	if c.ScratchDir == "" {
		c.ScratchDir = filepath.Join(os.TempDir(), "sheetmirror")
	}
}

// Save saves the configuration to path, or the default location when path is empty
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if path == "" {
		var err error
		path, err = GetConfigPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks value ranges. Required-but-absent values are checked at first use
// by RequireSync and RequireRecords.
func (c *Config) Validate() error {
	if c.FTPPort < 1 || c.FTPPort > 65535 {
		return fmt.Errorf("ftp port must be between 1 and 65535, got: %d", c.FTPPort)
	}
	if c.FTPTimeoutSeconds < 1 || c.FTPTimeoutSeconds > 600 {
		return fmt.Errorf("ftp timeout must be between 1 and 600 seconds, got: %d", c.FTPTimeoutSeconds)
	}
	if c.PollIntervalSeconds < 1 {
		return fmt.Errorf("poll interval must be at least 1 second, got: %d", c.PollIntervalSeconds)
	}
	if c.RunTimeoutSeconds < 0 {
		return fmt.Errorf("run timeout must be non-negative, got: %d", c.RunTimeoutSeconds)
	}
	if c.Concurrency < 1 || c.Concurrency > utils.MaxConcurrency {
		return fmt.Errorf("concurrency must be between 1 and %d, got: %d", utils.MaxConcurrency, c.Concurrency)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("max retries must be between 0 and 10, got: %d", c.MaxRetries)
	}
	if c.RetryBaseDelay < 100 || c.RetryBaseDelay > 60000 {
		return fmt.Errorf("retry base delay must be between 100ms and 60000ms, got: %d", c.RetryBaseDelay)
	}
	if c.SheetRange == "" {
		return fmt.Errorf("sheet range must not be empty")
	}
	if c.HealthAddr != "" {
		if _, _, err := net.SplitHostPort(c.HealthAddr); err != nil {
			return fmt.Errorf("invalid health address %q: %w", c.HealthAddr, err)
		}
	}

	validLogLevels := []string{"quiet", "normal", "verbose", "debug"}
	isValid := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			isValid = true
			break
		}
	}
	if !isValid {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	return nil
}

// RequireSync reports every value the mirror needs that is still absent
func (c *Config) RequireSync() error {
	var missing []string
	if c.SpreadsheetID == "" {
		missing = append(missing, "spreadsheetId")
	}
	missing = append(missing, c.missingCredentials()...)
	if c.FTPHost == "" {
		missing = append(missing, "ftpHost")
	}
	if c.FTPUser == "" {
		missing = append(missing, "ftpUser")
	}
	if c.FTPPassword == "" && !c.FTPPasswordKeyring {
		missing = append(missing, "ftpPassword")
	}
	return missingError("sync", missing)
}

// RequireResolve reports values needed to read from Drive and Sheets only
func (c *Config) RequireResolve() error {
	return missingError("resolve", c.missingCredentials())
}

// RequireRecords reports every value the document-store sync needs that is still absent
func (c *Config) RequireRecords() error {
	var missing []string
	if c.SpreadsheetID == "" {
		missing = append(missing, "spreadsheetId")
	}
	missing = append(missing, c.missingCredentials()...)
	if c.RecordsRange == "" {
		missing = append(missing, "recordsRange")
	}
	if c.RecordsCollection == "" {
		missing = append(missing, "recordsCollection")
	}
	if c.RecordsDBPath == "" {
		missing = append(missing, "recordsDBPath")
	}
	return missingError("records", missing)
}

func (c *Config) missingCredentials() []string {
	if c.ServiceAccountKeyFile == "" && c.ServiceAccountKeyJSON == "" {
		return []string{"serviceAccountKeyFile|serviceAccountKeyJSON"}
	}
	return nil
}

func missingError(purpose string, missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return utils.NewCLIError(utils.ErrCodeConfigurationMissing,
		fmt.Sprintf("missing configuration for %s: %s", purpose, strings.Join(missing, ", "))).
		WithContext("missing", missing).
		Err()
}

// SecretLoader looks up a stored secret by name
type SecretLoader interface {
	Load(name string) (string, error)
}

// FTPSecretName is the secret-store key holding the FTP password
func (c *Config) FTPSecretName() string {
	return fmt.Sprintf("ftp:%s@%s", c.FTPUser, c.FTPHost)
}

// ResolveFTPPassword fills FTPPassword from secrets when FTPPasswordKeyring is set
func (c *Config) ResolveFTPPassword(secrets SecretLoader) error {
	if !c.FTPPasswordKeyring || c.FTPPassword != "" {
		return nil
	}
	password, err := secrets.Load(c.FTPSecretName())
	if err != nil {
		return utils.WrapAppError(utils.ErrCodeConfigurationMissing, err,
			"ftp password not found in secret store under %q", c.FTPSecretName())
	}
	c.FTPPassword = password
	return nil
}

// Redacted returns a copy safe to print
func (c *Config) Redacted() *Config {
	out := *c
	if out.FTPPassword != "" {
		out.FTPPassword = redactedValue
	}
	if out.ServiceAccountKeyJSON != "" {
		out.ServiceAccountKeyJSON = redactedValue
	}
	return &out
}

func (c *Config) FTPAddr() string {
	return net.JoinHostPort(c.FTPHost, strconv.Itoa(c.FTPPort))
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// RunTimeout returns 0 when runs are unbounded
func (c *Config) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutSeconds) * time.Second
}

func (c *Config) FTPTimeout() time.Duration {
	return time.Duration(c.FTPTimeoutSeconds) * time.Second
}

// GetRetryBaseDelay returns the retry base delay as a duration
func (c *Config) GetRetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelay) * time.Millisecond
}

// AsTableRenderer lists the configuration as key/value rows
func (c *Config) AsTableRenderer() types.TableRenderer {
	return configTable{cfg: c}
}

type configTable struct {
	cfg *Config
}

func (t configTable) Headers() []string {
	return []string{"Key", "Value"}
}

func (t configTable) Rows() [][]string {
	c := t.cfg
	return [][]string{
		{"spreadsheetId", c.SpreadsheetID},
		{"sheetRange", c.SheetRange},
		{"recordsRange", c.RecordsRange},
		{"recordsCollection", c.RecordsCollection},
		{"recordsEnabled", strconv.FormatBool(c.RecordsEnabled)},
		{"recordsDBPath", c.RecordsDBPath},
		{"serviceAccountKeyFile", c.ServiceAccountKeyFile},
		{"serviceAccountKeyJSON", c.ServiceAccountKeyJSON},
		{"ftpHost", c.FTPHost},
		{"ftpPort", strconv.Itoa(c.FTPPort)},
		{"ftpUser", c.FTPUser},
		{"ftpPassword", c.FTPPassword},
		{"ftpPasswordKeyring", strconv.FormatBool(c.FTPPasswordKeyring)},
		{"ftpTLS", strconv.FormatBool(c.FTPTLS)},
		{"ftpTimeoutSeconds", strconv.Itoa(c.FTPTimeoutSeconds)},
		{"pollIntervalSeconds", strconv.Itoa(c.PollIntervalSeconds)},
		{"runTimeoutSeconds", strconv.Itoa(c.RunTimeoutSeconds)},
		{"concurrency", strconv.Itoa(c.Concurrency)},
		{"maxRetries", strconv.Itoa(c.MaxRetries)},
		{"retryBaseDelay", strconv.Itoa(c.RetryBaseDelay)},
		{"healthAddr", c.HealthAddr},
		{"logLevel", c.LogLevel},
		{"logFile", c.LogFile},
		{"scratchDir", c.ScratchDir},
	}
}

func (t configTable) EmptyMessage() string {
	return "No configuration"
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvPrefix + "CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "sheetmirror"), nil
}

// parseBool parses a boolean value from a string
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}
