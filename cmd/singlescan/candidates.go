package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gitlab.com/stephen-fox/singlescan/asmkit"
	"gitlab.com/stephen-fox/singlescan/memory"
	"gitlab.com/stephen-fox/singlescan/module"
	"gitlab.com/stephen-fox/singlescan/pattern"
	"gitlab.com/stephen-fox/singlescan/singleton"
)

func newCandidatesCommand(vp *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidates <exe>",
		Short: "List the singleton candidates of a PE file",
		Long: `List the null check idioms of a PE file whose instance, metadata,
and name function addresses point into the expected sections,
followed by the disassembly of each idiom.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := vp.BindPFlags(cmd.Flags())
			if err != nil {
				return err
			}

			return runCandidates(cmd.OutOrStdout(), vp, args[0])
		},
	}

	cmd.Flags().AddFlagSet(scanFlags())
	cmd.Flags().String(keyPattern, "",
		"An alternative idiom pattern with three 4 byte capture groups")

	return cmd
}

func runCandidates(w io.Writer, vp *viper.Viper, exePath string) error {
	img, mem, err := module.LoadPEFile(exePath)
	if err != nil {
		return fmt.Errorf("failed to load %q - %w", exePath, err)
	}

	moduleNames := []string{img.Name()}

	code, err := module.FindSection(img, mem, moduleNames, vp.GetString(keyCodeSection))
	if err != nil {
		return err
	}

	data, err := module.FindSection(img, mem, moduleNames, vp.GetString(keyDataSection))
	if err != nil {
		return err
	}

	idiom := vp.GetString(keyPattern)
	if idiom == "" {
		idiom = singleton.NullCheckIdiom
	}

	p, err := pattern.Compile(idiom)
	if err != nil {
		return fmt.Errorf("failed to compile idiom pattern - %w", err)
	}

	candidates, err := singleton.FindCandidates(code, data, p)
	if err != nil {
		return err
	}

	disass, err := asmkit.NewDisassembler(asmkit.DisassemblerConfig{
		Syntax: asmkit.IntelSyntax,
		Bits:   64,
	})
	if err != nil {
		return err
	}

	for _, c := range candidates {
		err = writeCandidate(w, disass, mem, c, p.Len())
		if err != nil {
			return err
		}
	}

	_, err = fmt.Fprintf(w, "%d candidates\n", len(candidates))
	return err
}

func writeCandidate(w io.Writer, disass *asmkit.Disassembler, mem memory.Memory, c singleton.Candidate, idiomLen int) error {
	_, err := fmt.Fprintf(w, "site: 0x%x\n  instance: 0x%x\n  metadata: 0x%x\n  resolver: 0x%x\n",
		c.Site, c.Instance, c.Metadata, c.Resolver)
	if err != nil {
		return err
	}

	insts, err := mem.View(c.Site, idiomLen)
	if err != nil {
		return fmt.Errorf("failed to view idiom at 0x%x - %w", c.Site, err)
	}

	expected := map[int]uintptr{
		0:  c.Instance,
		12: c.Metadata,
		19: c.Resolver,
	}

	return disass.All(insts, c.Site, func(inst asmkit.Inst) error {
		want, checked := expected[inst.Index]
		if checked {
			target, hasIt := inst.Target()
			if !hasIt || target != want {
				return fmt.Errorf("instruction at 0x%x (%q) does not reference 0x%x",
					inst.Addr, inst.Dis, want)
			}
		}

		_, err := fmt.Fprintf(w, "  0x%x: %x\t%s\n", inst.Addr, inst.Bin, inst.Dis)
		return err
	})
}
