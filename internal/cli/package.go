package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/raywall/terraform-provider-lambdaproxy/internal/packager"
)

func (a *app) newPackageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "package",
		Short: "Zip the handler source into the deployment archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			source := a.v.GetString("source")
			res, err := packager.Zip(source, a.v.GetString("output"))
			if err != nil {
				return err
			}

			a.logger.Debug("archive written", "source", source, "path", res.Path)
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tsha256=%s\n",
				res.Path, humanize.Bytes(uint64(res.Size)), res.Base64SHA256)
			return nil
		},
	}
	cmd.Flags().String("source", packager.DefaultSource, "Handler source file")
	cmd.Flags().String("output", packager.DefaultOutput, "Archive to write")
	return cmd
}
