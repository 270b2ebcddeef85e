package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const version = "1.0.0"

// newRootCmd builds the CLI. Flags override the config file and the
// THERMOSTAB_ environment.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "thermostab",
		Short: "Thermal stabilization bath controller",
		Long: `thermostab drives a lab thermal bath through a relay board and a T-C
temperature controller, walking a list of temperature points and recording a
measurement once each point holds steady.

Hardware:  relay.port and tempt.port in configs/config.yml
Demo:      --demo runs both boards against an in-process simulated bath`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v, cfgFile)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfgFile, "config", "c", "", "Config file (default configs/config.yml)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.Bool("demo", false, "Use the simulated bath instead of serial ports")
	flags.StringP("port", "p", "", "HTTP listen port")

	_ = bindFlags(v, flags)
	return cmd
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"log-level": "log.level",
	"demo":      "demo",
	"port":      "port",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}
