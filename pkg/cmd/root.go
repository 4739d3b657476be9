package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/telekom/mailsend/pkg/config"
	"github.com/telekom/mailsend/pkg/mail"
	"github.com/telekom/mailsend/pkg/system"
)

type Config struct {
	ConfigPath   string
	OutputWriter io.Writer
	Input        io.Reader
	// Context is the parent of every command context, e.g. a signal context.
	Context context.Context
	// Logger replaces the logger built from --debug.
	Logger *zap.Logger
	// Transport replaces the implicit-TLS SMTP transport.
	Transport mail.Transport
}

type runtimeState struct {
	configPath string
	cfg        *config.Config
	debug      bool
	writer     io.Writer
	input      io.Reader
	logger     *zap.Logger
	transport  mail.Transport
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultConfigPath(),
		OutputWriter: os.Stdout,
		Input:        os.Stdin,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{
		configPath: cfg.ConfigPath,
		writer:     cfg.OutputWriter,
		input:      cfg.Input,
		logger:     cfg.Logger,
		transport:  cfg.Transport,
	}

	root := &cobra.Command{
		Use:          "mailsend",
		Short:        "Send a plain-text email over implicit-TLS SMTP and log the outcome",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.input == nil {
				rt.input = os.Stdin
			}
			if cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}

			explicit := cmd.Flags().Changed("config") || os.Getenv(config.EnvPrefix+"CONFIG") != ""
			if rt.configPath == "" {
				rt.configPath = config.DefaultConfigPath()
			}
			loaded, err := config.Load(rt.configPath, explicit)
			if err != nil {
				return err
			}
			rt.cfg = &loaded
			if rt.debug {
				rt.cfg.Debug = true
			}

			if rt.logger == nil {
				logger, err := system.NewLogger(rt.cfg.Debug)
				if err != nil {
					return err
				}
				rt.logger = logger
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", rt.configPath, "Path to config file")
	root.PersistentFlags().BoolVar(&rt.debug, "debug", false, "Enable debug level logging")

	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}
	root.SetContext(context.WithValue(parent, runtimeKey{}, rt))

	root.AddCommand(
		NewSendCommand(),
		NewKeyringCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) Input() io.Reader {
	if rt.input != nil {
		return rt.input
	}
	return os.Stdin
}

func (rt *runtimeState) Logger() *zap.SugaredLogger {
	if rt.logger == nil {
		return zap.NewNop().Sugar()
	}
	return rt.logger.Sugar()
}

func (rt *runtimeState) EnsureConfigLoaded() error {
	if rt.cfg != nil {
		return nil
	}
	cfg, err := config.Load(rt.configPath, false)
	if err != nil {
		return err
	}
	rt.cfg = &cfg
	return nil
}
