package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spachava753/imapretriever/internal/credential"
)

// secretStore is the part of credential.Store the keyring commands use.
type secretStore interface {
	Set(key, value string) error
	Delete(key string) error
}

// openStore opens the keyring for a service name. Tests replace it.
var openStore = func(service string) (secretStore, error) {
	return credential.Open(credential.Options{Service: service})
}

func newKeyringCmd() *cobra.Command {
	keyringCmd := &cobra.Command{
		Use:   "keyring",
		Short: "Manage passwords stored in the OS keyring",
	}
	keyringCmd.PersistentFlags().String("host", "", "IMAP server hostname")
	keyringCmd.PersistentFlags().String("user", "", "IMAP username")
	keyringCmd.PersistentFlags().String("keyring-service", credential.DefaultService, "OS keyring service name")

	keyringCmd.AddCommand(&cobra.Command{
		Use:   "set",
		Short: "Store a password or token read from stdin",
		Long: `Store the first line of stdin as the password for --user at --host:

  printf '%s\n' "$APP_PASSWORD" | imapretriever keyring set --host imap.example.com --user me@example.com

Later runs pick it up with --keyring-service.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, key, err := keyringTarget(cmd)
			if err != nil {
				return err
			}
			secret, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			secret = strings.TrimRight(secret, "\r\n")
			if secret == "" {
				if err != nil {
					return fmt.Errorf("reading password from stdin: %w", err)
				}
				return errors.New("password read from stdin is empty")
			}
			if err := store.Set(key, secret); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored password for %s\n", key)
			return nil
		},
	})

	keyringCmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove a stored password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, key, err := keyringTarget(cmd)
			if err != nil {
				return err
			}
			if err := store.Delete(key); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted password for %s\n", key)
			return nil
		},
	})
	return keyringCmd
}

func keyringTarget(cmd *cobra.Command) (secretStore, string, error) {
	flags := cmd.Flags()
	host, _ := flags.GetString("host")
	user, _ := flags.GetString("user")
	service, _ := flags.GetString("keyring-service")
	if host == "" || user == "" {
		return nil, "", errors.New("--host and --user are required")
	}
	store, err := openStore(service)
	if err != nil {
		return nil, "", err
	}
	return store, credential.Key(user, host), nil
}
