package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spachava753/imapretriever/internal/config"
	"github.com/spachava753/imapretriever/internal/logging"
	"github.com/spachava753/imapretriever/retriever"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	rootCmd := &cobra.Command{
		Use:   "imapretriever [flags] QUERY...",
		Short: "Search an IMAP mailbox and print matching messages as text documents",
		Long: `imapretriever runs one IMAP SEARCH and prints the matching messages.

The query is passed to the server verbatim, for example:

  imapretriever --host imap.example.com --user me@example.com ALL
  imapretriever --host imap.example.com --user me@example.com 'SUBJECT "URGENT" NOT FROM "security@example.com"'
  imapretriever --host imap.example.com --user me@example.com 'SENTSINCE "1-Oct-2023"'

Every flag can also be set with an IMAP_ environment variable (IMAP_HOST,
IMAP_PASSWORD, IMAP_LOG_LEVEL, ...), a .env file or a --config file.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd, v, args)
			if err != nil {
				return err
			}

			logger, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			return run(cfg, logger, cmd.OutOrStdout())
		},
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(newKeyringCmd())

	if err := config.RegisterFlags(rootCmd, v); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}
	return rootCmd
}

func run(cfg config.Config, logger *zap.Logger, out io.Writer) error {
	r, err := retriever.New(cfg.Retriever, retriever.WithLogger(logger))
	if err != nil {
		return err
	}

	logger.Info("retrieving", zap.String("host", cfg.Retriever.Host), zap.String("query", cfg.Query))
	docs, err := r.Invoke(cfg.Query)
	if err != nil {
		return err
	}
	logger.Info("retrieved", zap.Int("documents", len(docs)))

	if cfg.Format == config.FormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}
	for i, doc := range docs {
		if i > 0 {
			fmt.Fprint(out, "\n---\n\n")
		}
		fmt.Fprintln(out, doc.PageContent)
	}
	return nil
}
