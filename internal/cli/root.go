// Package cli implements the shmrecord command line tool.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/srediag/shmrecord/internal/config"
	"github.com/srediag/shmrecord/internal/logger"
)

const envPrefix = "SHMRECORD"

// cmdIO carries the streams and global flags every command shares.
type cmdIO struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	configPath string
	logLevel   int
}

// loadFile reads the record set configuration named by --config.
func (c *cmdIO) loadFile() (*config.File, error) {
	if c.configPath == "" {
		return nil, errors.New("no record set configuration given, use --config")
	}
	f, err := config.Load(c.configPath)
	if err != nil {
		return nil, errors.Wrap(err, "loading record set configuration")
	}
	return f, nil
}

// NewRootCommand builds the shmrecord command tree.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := &cmdIO{stdin: stdin, stdout: stdout, stderr: stderr}
	rc := &cobra.Command{
		Use:   "shmrecord",
		Short: "Inspect, view and feed typed shared memory record sets.",
		Long: `shmrecord works with record sets: fixed-size arrays of typed scalars
shared between processes through named shared memory segments.

Record sets are described in a TOML or YAML file, either at the top level
(name, num, dtype, varnames) or as [section.label] tables. Every flag can
also be given as an environment variable prefixed with ` + envPrefix + `_,
e.g. ` + envPrefix + `_CONFIG or ` + envPrefix + `_LOG_LEVEL.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if err := setAllConfig(v, cmd.Flags()); err != nil {
				return err
			}
			logger.SetLevel(c.logLevel)
			return nil
		},
	}
	rc.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Record set configuration file (.toml, .yaml).")
	rc.PersistentFlags().IntVar(&c.logLevel, "log-level", logger.Level(),
		fmt.Sprintf("Log level, %d (trace) to %d (silent).", logger.LevelTrace, logger.LevelNoPrint))

	rc.AddCommand(newViewCommand(c))
	rc.AddCommand(newWatchCommand(c))
	rc.AddCommand(newDemoCommand(c))
	rc.AddCommand(newGetCommand(c))
	rc.AddCommand(newSetCommand(c))
	rc.AddCommand(newInfoCommand(c))
	rc.AddCommand(newUnlinkCommand(c))

	rc.SetIn(stdin)
	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// setAllConfig fills every flag that was not given on the command line from
// the environment. Variables are the upper-cased flag names with dashes
// replaced by underscores, prefixed with SHMRECORD_.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			return
		}
		var value string
		if f.Value.Type() == "stringSlice" {
			value = strings.Join(v.GetStringSlice(f.Name), ",")
		} else {
			value = v.GetString(f.Name)
		}
		if value == "" && f.DefValue == "" {
			return
		}
		if err := f.Value.Set(value); err != nil {
			flagErr = errors.Wrapf(err, "setting %s from environment", f.Name)
		}
	})
	return flagErr
}
