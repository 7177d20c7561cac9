package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gitlab.com/stephen-fox/singlescan/singleton"
)

const (
	appName   = "singlescan"
	envPrefix = "SINGLESCAN"

	keyConfig      = "config"       // string
	keyVerbose     = "verbose"      // bool
	keyCodeSection = "code-section" // string
	keyDataSection = "data-section" // string
	keyPattern     = "pattern"      // string

	longDescription = appName + ` inspects executables for the null check idiom
that guards the reflected singletons of the game, without running them.

Name resolution requires calling into the running game and is therefore
not performed. The addresses printed are based on the preferred image
base of the executable.

Options may also be set using environment variables prefixed with
` + envPrefix + `_ (e.g., ` + envPrefix + `_CODE_SECTION=.text) or using
a configuration file specified with --` + keyConfig + `.`
)

func main() {
	err := newRootCommand(viper.New()).Execute()
	if err != nil {
		logrus.Fatalln("fatal:", err)
	}
}

func newRootCommand(vp *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Find singleton null check idioms in executables",
		Long:          longDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(vp)
		},
	}

	root.PersistentFlags().AddFlagSet(globalFlags())

	err := vp.BindPFlags(root.PersistentFlags())
	if err != nil {
		panic(err)
	}

	root.AddCommand(
		newCandidatesCommand(vp),
		newPatternCommand(vp),
	)

	return root
}

func globalFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("global", pflag.ContinueOnError)

	flags.String(keyConfig, "", "Optional config file")
	flags.BoolP(keyVerbose, "v", false, "Enable debug messages")

	return flags
}

func initConfig(vp *viper.Viper) error {
	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	vp.AutomaticEnv()

	configPath := vp.GetString(keyConfig)
	if configPath != "" {
		vp.SetConfigFile(configPath)

		err := vp.ReadInConfig()
		if err != nil {
			return fmt.Errorf("failed to read config file %q - %w", configPath, err)
		}
	}

	if vp.GetBool(keyVerbose) {
		logrus.SetLevel(logrus.DebugLevel)
	}

	return nil
}

func scanFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("scan", pflag.ContinueOnError)

	flags.String(keyCodeSection, singleton.DefaultCodeSection,
		"The section containing the null check idioms")
	flags.String(keyDataSection, singleton.DefaultDataSection,
		"The section containing the instance pointers")

	return flags
}
