// Package config resolves command line flags, environment variables, config
// files and keyring secrets into a retriever configuration.
//
// Precedence, highest first: flags, IMAP_* environment variables (a .env file
// is loaded into the environment first), the --config file, defaults. The
// password falls back to the OS keyring when --keyring-service is set.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spachava753/imapretriever/internal/credential"
	"github.com/spachava753/imapretriever/internal/logging"
	"github.com/spachava753/imapretriever/mailtext"
	"github.com/spachava753/imapretriever/retriever"
)

const envPrefix = "IMAP"

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config is everything one command invocation needs.
type Config struct {
	Retriever retriever.Config
	Log       logging.Config
	Format    string
	Query     string
}

// SecretStore looks up stored secrets by key.
type SecretStore interface {
	Get(key string) (string, error)
}

// OpenSecrets opens the keyring for a service name. Tests replace it.
var OpenSecrets = func(service string) (SecretStore, error) {
	return credential.Open(credential.Options{Service: service})
}

// flag name -> viper key
var flagKeys = map[string]string{
	"host":            "host",
	"port":            "port",
	"user":            "user",
	"password":        "password",
	"security":        "security",
	"auth":            "auth",
	"verify-cert":     "verify_cert",
	"mailbox":         "mailbox",
	"attachments":     "attachments",
	"k":               "k",
	"timeout":         "timeout",
	"format":          "format",
	"keyring-service": "keyring_service",
	"log-level":       "log.level",
	"log-file":        "log.file",
	"log-development": "log.development",
}

// RegisterFlags attaches all CLI flags to cmd and binds them into v.
func RegisterFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.Flags()
	flags.String("config", "", "Path to a config file (yaml, json or toml)")
	flags.String("env-file", "", "Path to a .env file (defaults to ./.env when present)")
	flags.String("host", "", "IMAP server hostname")
	flags.Int("port", 0, "IMAP server port (993 for ssl, 143 otherwise)")
	flags.String("user", "", "IMAP username")
	flags.String("password", "", "IMAP password or OAuth2 token (prefer IMAP_PASSWORD or the keyring)")
	flags.String("security", string(retriever.SecuritySSL), "Connection security: ssl, starttls or plain (plain upgrades with STARTTLS)")
	flags.String("auth", string(retriever.AuthLogin), "Authentication method: login or oauth2")
	flags.Bool("verify-cert", true, "Verify the server certificate")
	flags.String("mailbox", "INBOX", "Mailbox to search")
	flags.String("attachments", string(mailtext.AttachmentsNone), "Attachment mode: none, names_only or full")
	flags.Int("k", 10, "Maximum number of messages to return")
	flags.Duration("timeout", 30*time.Second, "Connect and command timeout")
	flags.String("format", FormatText, "Output format: text or json")
	flags.String("keyring-service", "", "Read the password from this OS keyring service when none is given")
	flags.String("log-level", "warn", "Logging level: debug, info, warn, error")
	flags.String("log-file", "", "Also write logs to this file, with rotation")
	flags.Bool("log-development", false, "Human-readable console logs")

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("binding flag %s: %w", name, err)
		}
	}
	return nil
}

// Load resolves the configuration for cmd. args form the search query.
func Load(cmd *cobra.Command, v *viper.Viper, args []string) (Config, error) {
	flags := cmd.Flags()

	envFile, err := flags.GetString("env-file")
	if err != nil {
		return Config{}, err
	}
	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	configFile, err := flags.GetString("config")
	if err != nil {
		return Config{}, err
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	timeout, err := time.ParseDuration(v.GetString("timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid timeout: %w", err)
	}

	cfg := Config{
		Retriever: retriever.Config{
			Host:               v.GetString("host"),
			Port:               v.GetInt("port"),
			User:               v.GetString("user"),
			Password:           v.GetString("password"),
			Security:           retriever.SecurityMode(strings.ToLower(v.GetString("security"))),
			Auth:               retriever.AuthMethod(strings.ToLower(v.GetString("auth"))),
			InsecureSkipVerify: !v.GetBool("verify_cert"),
			Mailbox:            v.GetString("mailbox"),
			Attachments:        mailtext.AttachmentMode(strings.ToLower(v.GetString("attachments"))),
			K:                  v.GetInt("k"),
			Timeout:            timeout,
		},
		Log: logging.Config{
			Level:       strings.ToLower(v.GetString("log.level")),
			File:        v.GetString("log.file"),
			Development: v.GetBool("log.development"),
			MaxSizeMB:   20,
			MaxBackups:  3,
			MaxAgeDays:  28,
		},
		Format: strings.ToLower(v.GetString("format")),
		Query:  strings.TrimSpace(strings.Join(args, " ")),
	}

	if cfg.Retriever.Password == "" {
		if service := v.GetString("keyring_service"); service != "" {
			cfg.Retriever.Password, err = lookupPassword(service, cfg.Retriever.User, cfg.Retriever.Host)
			if err != nil {
				return Config{}, err
			}
		}
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func lookupPassword(service, user, host string) (string, error) {
	store, err := OpenSecrets(service)
	if err != nil {
		return "", err
	}
	password, err := store.Get(credential.Key(user, host))
	if errors.Is(err, credential.ErrNotFound) {
		return "", fmt.Errorf("no password stored in keyring %q for %s: %w", service, credential.Key(user, host), err)
	}
	return password, err
}

func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
	return nil
}

func validate(cfg Config) error {
	if cfg.Query == "" {
		return fmt.Errorf("a search query is required, for example: ALL or 'SUBJECT \"invoice\"'")
	}
	if cfg.Retriever.Host == "" {
		return fmt.Errorf("--host or IMAP_HOST is required")
	}
	if cfg.Retriever.User == "" {
		return fmt.Errorf("--user or IMAP_USER is required")
	}
	if cfg.Retriever.Password == "" {
		return fmt.Errorf("IMAP password must be provided via --password, IMAP_PASSWORD or --keyring-service")
	}
	switch cfg.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("invalid --format: %s", cfg.Format)
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.Log.Level)
	}
	return nil
}
