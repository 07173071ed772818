package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/macropower/rulelabel/api/v1beta1/configs"
	"github.com/macropower/rulelabel/pkg/cluster"
	"github.com/macropower/rulelabel/pkg/config"
	"github.com/macropower/rulelabel/pkg/diff"
	"github.com/macropower/rulelabel/pkg/execs"
	"github.com/macropower/rulelabel/pkg/log"
	"github.com/macropower/rulelabel/pkg/patch"
	"github.com/macropower/rulelabel/pkg/promrule"
	"github.com/macropower/rulelabel/pkg/selector"
)

const (
	cmdExamples = `  # Copy the alerts listed in alerts.txt with a "-custom" suffix and set
  # severity=critical on the copies:
  rulelabel -l severity -v critical -f alerts.txt

  # Set the label on the listed alerts in place:
  rulelabel -l severity -v critical -f alerts.txt --mode update

  # Use a pre-dumped rules file instead of running "oc get promrule":
  rulelabel -l team -v sre -f alerts.txt -j promrules.json

  # Select rules with a CEL expression instead of a list:
  rulelabel -l team -v sre --match 'alert.startsWith("Kube") && labels.severity == "warning"'

  # Show what changed, and apply the result:
  rulelabel -l severity -v critical -f alerts.txt --diff --apply`

	// DefaultCloneOutput is the default output path in clone mode.
	DefaultCloneOutput = "custom_promrules.json"
	// DefaultUpdateOutput is the default output path in update mode.
	DefaultUpdateOutput = "updated_promrules.json"
)

type RunArgs struct {
	*RootArgs

	Label        string
	Value        string
	AlertFile    string
	JSONFile     string
	Output       string
	Mode         string
	Suffix       string
	Match        string
	FetchCommand string
	ApplyCommand string
	ConfigPath   string
	Apply        bool
	Diff         bool
	WriteConfig  bool
	ShowConfig   bool
}

func NewRunArgs(rootArgs *RootArgs) *RunArgs {
	return &RunArgs{
		RootArgs: rootArgs,
	}
}

func (ra *RunArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&ra.Label, "label", "l", "", "Label key to set")
	cmd.Flags().StringVarP(&ra.Value, "value", "v", "", "Label value to set")
	cmd.Flags().StringVarP(&ra.AlertFile, "file", "f", "", "File with one alert name per line")
	cmd.Flags().StringVarP(&ra.JSONFile, "json-file", "j", "",
		"PrometheusRule list as JSON; if unset, the source command is run")
	cmd.Flags().StringVarP(&ra.Output, "output", "o", "",
		fmt.Sprintf("Output file (default %q, or %q with --mode=update)", DefaultCloneOutput, DefaultUpdateOutput))
	cmd.Flags().BoolVarP(&ra.Apply, "apply", "a", false, "Apply the output file with the apply command")
	cmd.Flags().StringVarP(&ra.Mode, "mode", "m", string(patch.ModeClone),
		fmt.Sprintf("Patch mode, one of: %s", patch.AllModes))
	cmd.Flags().StringVar(&ra.Suffix, "suffix", patch.DefaultSuffix, "Alert name suffix for cloned rules")
	cmd.Flags().StringVar(&ra.Match, "match", "", "CEL expression that rules must also match")
	cmd.Flags().BoolVar(&ra.Diff, "diff", false, "Print a diff of the input and output documents")
	cmd.Flags().StringVar(&ra.FetchCommand, "fetch-command", "", "Override the configured source command")
	cmd.Flags().StringVar(&ra.ApplyCommand, "apply-command", "",
		"Override the configured apply command; the output path is appended")
	cmd.Flags().StringVar(&ra.ConfigPath, "config", "", "Path to the rulelabel configuration file")
	cmd.Flags().BoolVar(&ra.WriteConfig, "write-config", false, "Write the default configuration files and exit")
	cmd.Flags().BoolVar(&ra.ShowConfig, "show-config", false, "Print the active configuration and exit")

	err := cmd.RegisterFlagCompletionFunc("mode",
		cobra.FixedCompletions(patch.AllModes, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(fmt.Errorf("register mode completion: %w", err))
	}

	err = cmd.MarkFlagFilename("config", "yaml", "yml")
	if err != nil {
		panic(fmt.Errorf("mark config flag: %w", err))
	}

	err = cmd.MarkFlagFilename("json-file", "json")
	if err != nil {
		panic(fmt.Errorf("mark json-file flag: %w", err))
	}
}

func run(cmd *cobra.Command, ra *RunArgs) error {
	ctx := cmd.Context()
	logger := log.WithContext(ctx)

	configPath := ra.ConfigPath
	if configPath == "" {
		configPath = configs.GetPath()
	}

	if ra.WriteConfig {
		return configs.WriteDefault(configPath, false) //nolint:wrapcheck // Already wrapped.
	}

	cfg, err := loadConfig(configPath, ra.ConfigPath != "", isTerminal(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}

	err = overrideCommands(cfg, ra)
	if err != nil {
		return err
	}

	if ra.ShowConfig {
		return showConfig(cmd.OutOrStdout(), configPath, cfg)
	}

	p, err := newPatcher(cmd, ra, cfg)
	if err != nil {
		return err
	}

	applier := newApplier(ra, cfg)

	var (
		src       cluster.Source
		inputName string
	)

	if ra.JSONFile != "" {
		src = cluster.FileSource{Path: ra.JSONFile}
		inputName = ra.JSONFile
	} else {
		cs := cluster.NewCommandSource(*cfg.Source, "")
		src = cs
		inputName = cs.String()
	}

	doc, err := src.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("read rules: %w", err)
	}

	// Update mode mutates doc, so render the input first.
	var before []byte
	if ra.Diff {
		before, err = promrule.Marshal(doc)
		if err != nil {
			return err //nolint:wrapcheck // Already wrapped.
		}
	}

	res := p.Patch(ctx, doc)

	for _, m := range res.Matches {
		logger.InfoContext(ctx, "labeled rule",
			slog.String("alert", m.Output),
			slog.String("resource", m.Location.Resource),
			slog.String("group", m.Location.Group),
		)
	}

	output := ra.Output
	if output == "" {
		output = defaultOutput(p.Mode())
	}

	err = cluster.WriteFile(ctx, output, res.Output)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	logger.InfoContext(ctx, "patched rules",
		slog.String("mode", string(res.Mode)),
		slog.Int("matched", len(res.Matches)),
		slog.Int("skipped", res.Skipped),
		slog.String("output", output),
	)

	if ra.Diff {
		err = printDiff(cmd.OutOrStdout(), inputName, output, before, res.Output)
		if err != nil {
			return err
		}
	}

	err = applier.Apply(ctx, output)
	if err != nil {
		logger.WarnContext(ctx, "could not apply rules", slog.Any("err", err))
	}

	return nil
}

// loadConfig loads the configuration file at path. If the file does not
// exist and was not explicitly requested, the defaults are used.
func loadConfig(path string, explicit, colored bool) (*configs.Config, error) {
	cfg, err := config.Load(path, config.WithColor(colored))
	switch {
	case err == nil:
		slog.Debug("loaded configuration", slog.String("path", path))

	case errors.Is(err, os.ErrNotExist) && !explicit:
		slog.Debug("no configuration file, using defaults", slog.String("path", path))

		cfg = configs.New()

	default:
		return nil, err //nolint:wrapcheck // Already wrapped.
	}

	cfg.SetBaseEnv(os.Environ())

	return cfg, nil
}

// overrideCommands replaces the configured commands with the ones given as
// flags. The configured environment is kept.
func overrideCommands(cfg *configs.Config, ra *RunArgs) error {
	if ra.FetchCommand != "" {
		c, err := parseCommandOverride(ra.FetchCommand, cfg.Source)
		if err != nil {
			return fmt.Errorf("--fetch-command: %w", err)
		}

		cfg.Source = c
	}

	if ra.ApplyCommand != "" {
		c, err := parseCommandOverride(ra.ApplyCommand, cfg.Apply)
		if err != nil {
			return fmt.Errorf("--apply-command: %w", err)
		}

		cfg.Apply = c
	}

	return nil
}

func parseCommandOverride(line string, base *execs.Command) (*execs.Command, error) {
	c, err := execs.ParseCommand(line)
	if err != nil {
		return nil, err //nolint:wrapcheck // Wrapped by the caller.
	}

	if base != nil {
		for _, ev := range base.Env {
			c.AddEnvVar(ev)
		}

		c.AddEnvFrom(base.EnvFrom)
	}

	return &c, nil
}

func newPatcher(cmd *cobra.Command, ra *RunArgs, cfg *configs.Config) (*patch.Patcher, error) {
	var missing []string
	if !flagSet(cmd, "label") {
		missing = append(missing, `"label"`)
	}
	if !flagSet(cmd, "value") {
		missing = append(missing, `"value"`)
	}
	if ra.AlertFile == "" && ra.Match == "" {
		missing = append(missing, `"file"`)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required flag(s) %s not set", strings.Join(missing, ", "))
	}

	mode, err := patch.ParseMode(ra.Mode)
	if err != nil {
		return nil, fmt.Errorf("invalid argument %q for \"--mode\" flag: %w", ra.Mode, err)
	}

	opts := []patch.Opt{
		patch.WithMode(mode),
		patch.WithSuffix(ra.Suffix),
		patch.WithEnvelope(*cfg.Envelope),
	}

	if ra.Match != "" {
		sel, err := selector.New(ra.Match)
		if err != nil {
			return nil, fmt.Errorf("--match: %w", err)
		}

		opts = append(opts, patch.WithSelector(sel))
	}

	var names patch.AlertNames
	if ra.AlertFile != "" {
		names, err = patch.ReadAlertNamesFile(ra.AlertFile)
		if err != nil {
			return nil, fmt.Errorf("read alert names: %w", err)
		}

		log.WithContext(cmd.Context()).Debug("read alert names",
			slog.String("path", ra.AlertFile),
			slog.Any("names", names.Sorted()),
		)
	}

	p, err := patch.New(patch.Label{Key: ra.Label, Value: ra.Value}, names, opts...)
	if err != nil {
		return nil, fmt.Errorf("create patcher: %w", err)
	}

	return p, nil
}

// newApplier returns the [cluster.Applier] for the output file. Without
// --apply, nothing is applied.
func newApplier(ra *RunArgs, cfg *configs.Config) cluster.Applier {
	if !ra.Apply {
		return cluster.NopApplier{}
	}

	return cluster.NewCommandApplier(*cfg.Apply, "")
}

// flagSet reports whether a flag was given, either as an argument or
// through its environment variable. An empty value counts as given.
func flagSet(cmd *cobra.Command, name string) bool {
	if cmd.Flags().Changed(name) {
		return true
	}

	_, ok := os.LookupEnv(flagToEnvName(name))

	return ok
}

func defaultOutput(mode patch.Mode) string {
	if mode == patch.ModeUpdate {
		return DefaultUpdateOutput
	}

	return DefaultCloneOutput
}

func showConfig(w io.Writer, path string, cfg *configs.Config) error {
	slog.Info("active configuration", slog.String("path", path))

	b, err := cfg.MarshalYAML()
	if err != nil {
		return fmt.Errorf("marshal config yaml: %w", err)
	}

	r := diff.NewRenderer(diff.WithLexer("yaml"), diff.WithColorProfile(colorProfile(w)))

	err = r.Render(w, string(b))
	if err != nil {
		mustN(fmt.Fprint(w, string(b)))

		return fmt.Errorf("render config: %w", err)
	}

	return nil
}

func printDiff(w io.Writer, oldName, newName string, before []byte, after any) error {
	b, err := promrule.Marshal(after)
	if err != nil {
		return err //nolint:wrapcheck // Already wrapped.
	}

	d := diff.Unified(oldName, newName, string(before), string(b))
	if d == "" {
		slog.Info("no changes")

		return nil
	}

	err = diff.NewRenderer(diff.WithColorProfile(colorProfile(w))).Render(w, d)
	if err != nil {
		return fmt.Errorf("print diff: %w", err)
	}

	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: File descriptors fit in int.
}

func colorProfile(w io.Writer) termenv.Profile {
	if !isTerminal(w) {
		return termenv.Ascii
	}

	return termenv.NewOutput(w).EnvColorProfile()
}
