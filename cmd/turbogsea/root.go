package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/maayanlab/turbogsea/internal/prerank"
)

const configName = ".turbogsea"

// app carries state shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool

	stdout io.Writer
	stderr io.Writer
	logger *zap.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		v:      viper.New(),
		stdout: stdout,
		stderr: stderr,
		logger: zap.NewNop(),
	}

	cmd := &cobra.Command{
		Use:   "turbogsea",
		Short: "Fast prerank gene set enrichment analysis",
		Long: `turbogsea scores gene sets against a ranked gene list and estimates
significance from gamma approximations of the permutation null.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          noSubcommand,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(); err != nil {
				return err
			}
			a.logger = newLogger(a.stderr, a.verbose)
			return nil
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default ~/"+configName+".yaml)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newPrerankCmd(a))
	cmd.AddCommand(newRunsCmd(a))
	cmd.AddCommand(newCacheCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newVersionCmd(a))

	return cmd
}

// initConfig layers defaults, the config file and TURBOGSEA_* variables.
// Flags are bound by the commands that own them.
func (a *app) initConfig() error {
	setDefaults(a.v)

	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		a.v.AddConfigPath(home)
		a.v.SetConfigName(configName)
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("TURBOGSEA")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (a.cfgFile == "" && errors.Is(err, os.ErrNotExist)) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// configPath is where "config set" writes.
func (a *app) configPath() (string, error) {
	if f := a.v.ConfigFileUsed(); f != "" {
		return f, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, configName+".yaml"), nil
}

func setDefaults(v *viper.Viper) {
	d := prerank.DefaultConfig()
	v.SetDefault("permutations", d.Permutations)
	v.SetDefault("weight", d.Weight)
	v.SetDefault("min_size", d.MinSize)
	v.SetDefault("max_size", d.MaxSize)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("fitter", d.Fitter)
	v.SetDefault("correction", d.Correction)
	v.SetDefault("sort", d.Sort)
	v.SetDefault("strategy", d.Strategy)
	v.SetDefault("anchors", d.Anchors)
	v.SetDefault("min_samples", d.MinSamples)
	v.SetDefault("duplicates", "error")
	v.SetDefault("db", "")
	v.SetDefault("fit_cache_size", prerank.DefaultFitCacheSize)
}

// analysisConfig reads the prerank settings from the merged configuration.
func analysisConfig(v *viper.Viper) prerank.Config {
	return prerank.Config{
		Permutations: v.GetInt("permutations"),
		Weight:       v.GetFloat64("weight"),
		MinSize:      v.GetInt("min_size"),
		MaxSize:      v.GetInt("max_size"),
		Seed:         v.GetUint64("seed"),
		Workers:      v.GetInt("workers"),
		Fitter:       v.GetString("fitter"),
		Correction:   v.GetString("correction"),
		Sort:         v.GetString("sort"),
		Strategy:     v.GetString("strategy"),
		Anchors:      v.GetInt("anchors"),
		MinSamples:   v.GetInt("min_samples"),
	}
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core)
}

// noSubcommand rejects positional arguments that name no known command.
func noSubcommand(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usageError{fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())}
	}
	return nil
}

// requiredFlags reports unset required flags as a usage error.
func requiredFlags(cmd *cobra.Command) error {
	if err := cmd.ValidateRequiredFlags(); err != nil {
		return usageError{err}
	}
	return nil
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  exactArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "turbogsea version %s (%s) built %s\n", version, commit, date)
		},
	}
}
