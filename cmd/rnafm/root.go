package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/erik-whiting/RNA-FM/fm"
	"github.com/erik-whiting/RNA-FM/internal/config"
	"github.com/erik-whiting/RNA-FM/internal/loader"
	"github.com/erik-whiting/RNA-FM/internal/logging"
)

// app holds the state shared by all commands.
type app struct {
	configPath string
	verbose    bool
	theme      string
	arch       string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "rnafm",
		Short: "Load and convert pretrained RNA-FM and ESM checkpoints",
		Long: `rnafm loads pretrained checkpoints saved under the legacy
roberta_large, protein_bert_base and msa_transformer naming conventions,
validates them against the model schema and converts them to canonical
.safetensors or .born files.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", config.DefaultConfigPath(), "Configuration file")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&a.theme, "theme", "", "Alphabet theme (protein, rna); default from config or architecture")
	flags.StringVar(&a.arch, "arch", "", "Override the architecture recorded in the checkpoint")

	root.AddCommand(
		a.loadCmd(),
		a.convertCmd(),
		a.archsCmd(),
		versionCmd(),
	)
	return root
}

// setup loads the configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.theme != "" {
		cfg.Theme = a.theme
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	logger, err := logging.New(logging.Level(cfg.Log.Level, a.verbose))
	if err != nil {
		return err
	}
	a.logger = logger.Named(cmd.Name())
	return nil
}

func (a *app) hub() *fm.Hub {
	return &loader.Hub{
		BaseURL:  a.cfg.Hub.BaseURL,
		CacheDir: a.cfg.Hub.CacheDir,
		Client:   &http.Client{Timeout: a.cfg.HubTimeout()},
		Logger:   a.logger,
	}
}

func (a *app) options() []fm.Option {
	opts := []fm.Option{
		fm.WithLogger(a.logger),
		fm.WithHub(a.hub()),
		fm.WithTheme(a.cfg.Theme),
	}
	if a.arch != "" {
		opts = append(opts, fm.WithArch(a.arch))
	}
	return opts
}

// fetch returns the checkpoint records for a file path or hub name.
func (a *app) fetch(ctx context.Context, nameOrPath string) (primary, regression *fm.Record, err error) {
	if fm.IsLocalPath(nameOrPath) {
		return loader.LoadLocal(nameOrPath)
	}
	return a.hub().Fetch(ctx, nameOrPath)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "rnafm %s\n", version)
			return err
		},
	}
}
