package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-promptkit/pkg/packet"
)

func newVerifyCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <packet-dir>",
		Short: "Re-check the hashes recorded in a run packet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := packet.Read(args[0])
			if err != nil {
				return err
			}
			if err := packet.Verify(p); err != nil {
				return err
			}
			a.log.Debug("packet verified", "dir", p.Dir)
			fmt.Fprintf(cmd.OutOrStdout(), "OK %s (%s %s, params %s, prompt %s)\n",
				p.Dir, p.Metadata.Template, p.Metadata.Version,
				short(p.Metadata.ParamsHash), short(p.Metadata.PromptHash))
			return nil
		},
	}
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
