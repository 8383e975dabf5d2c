package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/leeovery/minimize/internal/config"
	"github.com/leeovery/minimize/internal/dedup"
	"github.com/leeovery/minimize/internal/fields"
	"github.com/leeovery/minimize/internal/logging"
	"github.com/leeovery/minimize/internal/pipeline"
	"github.com/leeovery/minimize/internal/report"
	"github.com/leeovery/minimize/internal/selector"
)

// outputOpts holds the flags that only shape what is printed.
type outputOpts struct {
	configFile string
	quiet      bool
	verbose    bool
	toon       bool
	pretty     bool
	json       bool
}

// flagKeys maps viper keys to the flags that override them.
var flagKeys = map[string]string{
	"files":               "files",
	"all":                 "all",
	"fields":              "fields",
	"delimiter":           "delimiter",
	"output_delimiter":    "output-delimiter",
	"extensions":          "ext",
	"store":               "store",
	"no_input":            "no-input",
	"allow_mixed_headers": "allow-mixed-headers",
	"lock_timeout":        "lock-timeout",
}

func (a *App) newRootCmd(workDir string) *cobra.Command {
	v := viper.New()
	var opts outputOpts

	cmd := &cobra.Command{
		Use:   "minimize [files...]",
		Short: "Shrink and dedupe large tab-delimited files",
		Long: `Reduces each input to the chosen columns, keeps the first occurrence of
every distinct row and writes <base>_minimized.csv next to the input.

Field positions are 1-based. Without --fields the columns of the first file
are listed and a comma separated selection is read from standard input.`,
		Example: `  minimize -f voters.txt -o 1 2 5
  minimize -a -o last_name,zip --store sqlite
  minimize --no-input --fields 3-4 extract.txt`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, v, workDir, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringSliceP("files", "f", nil, "files to process")
	f.BoolP("all", "a", false, "process every .csv/.txt file in the working directory")
	f.StringSliceP("fields", "o", nil, "1-based columns or column names to keep and dedupe on")
	f.StringP("delimiter", "d", "\t", `input delimiter ("\t", tab, pipe, comma or one character)`)
	f.String("output-delimiter", ",", "output delimiter")
	f.StringSlice("ext", selector.DefaultExtensions, "extensions picked up by --all")
	f.String("store", string(dedup.StoreMemory), "seen-row store: memory or sqlite")
	f.Bool("no-input", false, "never prompt; a missing field selection is an error")
	f.Bool("allow-mixed-headers", false, "process files whose headers differ, resolving fields per file")
	f.Duration("lock-timeout", 5*time.Second, "how long to wait for another run in this directory")

	f.StringVar(&opts.configFile, "config", "", "config file (default ./minimize.yaml if present)")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "print only output paths")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging on stderr")
	f.BoolVar(&opts.toon, "toon", false, "force TOON output")
	f.BoolVar(&opts.pretty, "pretty", false, "force human-readable output")
	f.BoolVar(&opts.json, "json", false, "force JSON output")

	return cmd
}

// bindFlags lets set flags override config file and env values.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for key, name := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

func (a *App) run(cmd *cobra.Command, v *viper.Viper, workDir string, args []string, opts outputOpts) error {
	format, err := report.ResolveFormat(opts.toon, opts.pretty, opts.json, report.DetectTTY(a.stdout))
	if err != nil {
		return err
	}
	formatter := report.New(format, opts.quiet)

	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(v, workDir, opts.configFile)
	if err != nil {
		return err
	}
	if opts.verbose {
		cfg.Logger.Level = "debug"
	}

	logger, err := logging.New(cfg.Logger, a.stderr)
	if err != nil {
		return err
	}
	defer logger.Sync()

	files, err := selector.Resolve(a.fs, workDir, selector.Options{
		Files:      append(cfg.Files, args...),
		All:        cfg.All,
		Extensions: cfg.Extensions,
	})
	if err != nil {
		return err
	}

	spec, err := a.fieldSpec(cfg, files[0], cfg.InputDelim)
	if err != nil {
		return err
	}

	logger.Debug("run configured",
		zap.Int("files", len(files)),
		zap.Strings("fields", cfg.Fields),
		zap.String("store", string(cfg.StoreKind)),
		zap.Bool("allow_mixed_headers", cfg.AllowMixedHeaders),
	)

	runner := pipeline.NewRunner(a.fs, pipeline.Options{
		Delimiter:         cfg.InputDelim,
		OutputDelimiter:   cfg.OutputDelim,
		Store:             cfg.StoreKind,
		MaxLine:           cfg.MaxLineBytes,
		AllowMixedHeaders: cfg.AllowMixedHeaders,
	},
		pipeline.WithLogger(logger),
		pipeline.WithLocker(pipeline.FileLock{
			Path:    filepath.Join(workDir, pipeline.LockName),
			Timeout: cfg.LockTimeout,
		}),
		pipeline.WithProgress(a.progressWriter(format, opts.quiet)),
	)

	summary, err := runner.Run(cmd.Context(), files, spec)
	if err != nil {
		return err
	}
	return formatter.FormatSummary(a.stdout, summary)
}

// fieldSpec takes the selection from flags or config, falling back to an
// interactive prompt over the first file's header unless input is disabled.
func (a *App) fieldSpec(cfg config.Config, first selector.FileRef, delim byte) (fields.Spec, error) {
	if len(cfg.Fields) > 0 {
		return fields.Parse(cfg.Fields)
	}
	if cfg.NoInput || a.stdin == nil {
		return fields.Spec{}, fmt.Errorf("%w: pass --fields or set fields in minimize.yaml", fields.ErrNoFields)
	}

	header, err := pipeline.ReadHeader(a.fs, first.Path, delim, cfg.MaxLineBytes)
	if err != nil {
		return fields.Spec{}, err
	}
	spec, err := fields.Prompt(a.stdin, a.stdout, header)
	if errors.Is(err, fields.ErrNoFields) {
		return fields.Spec{}, fmt.Errorf("%w: no selection entered", fields.ErrNoFields)
	}
	return spec, err
}

// progressWriter keeps machine-readable stdout clean: progress lines go to
// stdout only for pretty output.
func (a *App) progressWriter(format report.Format, quiet bool) io.Writer {
	switch {
	case quiet:
		return nil
	case format == report.FormatPretty:
		return a.stdout
	default:
		return a.stderr
	}
}
