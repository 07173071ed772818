package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// envPrefix is prepended to environment variable names bound to flags.
var envPrefix = strings.ToUpper(cmdName)

// bindEnvVars binds environment variables to the flags of cmd.
//
// The variable for a flag is <PREFIX>_<FLAG_NAME>, upper-cased with dashes
// replaced by underscores; "log-level" is read from RULELABEL_LOG_LEVEL.
// Arguments take precedence over environment variables, which take
// precedence over default values.
//
// Flag usage strings are updated to show the variable name in help output.
func bindEnvVars(cmd *cobra.Command) {
	bind := func(flag *pflag.Flag) {
		if flag.Name == "help" || flag.Name == "version" {
			return
		}

		envName := flagToEnvName(flag.Name)
		if !strings.Contains(flag.Usage, envName) {
			flag.Usage = fmt.Sprintf("%s ($%s)", flag.Usage, envName)
		}

		// Skip flags that were already set via command line arguments.
		if flag.Changed {
			return
		}

		envValue, ok := os.LookupEnv(envName)
		if !ok {
			return
		}

		err := flag.Value.Set(envValue)
		if err != nil {
			// Keep the default value.
			slog.Error("failed to set flag from environment variable",
				slog.String("flag", flag.Name),
				slog.String("env", envName),
				slog.String("value", envValue),
				slog.Any("error", err),
			)

			return
		}

		flag.DefValue = envValue
	}

	cmd.Flags().VisitAll(bind)
	cmd.PersistentFlags().VisitAll(bind)
}

// flagToEnvName converts a flag name to its environment variable name.
func flagToEnvName(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
