package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gitlab.com/stephen-fox/singlescan/pattern"
)

func newPatternCommand(vp *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pattern -p <pattern> <file>",
		Short: "Scan a file for a bit pattern",
		Long: `Scan a raw file for a bit pattern and print the offset of each match,
followed by the hex encoded bytes of each capture group. For example:

  $ ` + appName + ` pattern -p '11101000 [target: ........ ........ ........ ........]' code.bin
  0x1c: target=d8070000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := vp.BindPFlags(cmd.Flags())
			if err != nil {
				return err
			}

			return runPattern(cmd.OutOrStdout(), vp.GetString(keyPattern), args[0])
		},
	}

	cmd.Flags().StringP(keyPattern, "p", "", "The pattern to scan for")

	return cmd
}

func runPattern(w io.Writer, patternText string, filePath string) error {
	if patternText == "" {
		return fmt.Errorf("please specify a pattern")
	}

	p, err := pattern.Compile(patternText)
	if err != nil {
		return err
	}

	contents, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	groups := p.Groups()

	for _, m := range p.ScanAll(contents) {
		line := fmt.Sprintf("0x%x:", m.Offset)

		for i, capture := range m.Captures {
			name := groups[i].Name
			if name == "" {
				name = fmt.Sprintf("%d", i)
			}

			line += " " + name + "=" + hex.EncodeToString(capture)
		}

		_, err = fmt.Fprintln(w, line)
		if err != nil {
			return err
		}
	}

	return nil
}
