package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"via-stitcher/internal/board"

	"github.com/spf13/cobra"
)

func newNetsCmd(o *rootOptions) *cobra.Command {
	var (
		boardPath string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "nets",
		Short: "List nets that can be stitched",
		Long:  `List the nets with filled copper on at least two layers.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := o.loadBoard(boardPath)
			if err != nil {
				return err
			}
			nets := board.CandidateNets(b)
			if asJSON {
				return writeJSON(cmd, nets)
			}
			out := cmd.OutOrStdout()
			if len(nets) == 0 {
				warnColor.Fprintln(out, "No net has filled copper on two or more layers")
				return nil
			}
			for _, n := range nets {
				fmt.Fprintln(out, n)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&boardPath, "board", "b", "", "Board file (YAML or JSON)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	_ = cmd.MarkFlagRequired("board")
	return cmd
}

func newZonesCmd(o *rootOptions) *cobra.Command {
	var (
		boardPath string
		net       string
		asJSON    bool
	)
	cmd := &cobra.Command{
		Use:   "zones",
		Short: "List other-net zones that vias of a net may punch through",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := o.loadBoard(boardPath)
			if err != nil {
				return err
			}
			if !board.HasNet(b, net) {
				return fmt.Errorf("net %q does not exist on %s", net, b.Name)
			}
			zones := board.OtherNetZones(b, net)
			if asJSON {
				return writeJSON(cmd, zones)
			}
			out := cmd.OutOrStdout()
			if len(zones) == 0 {
				fmt.Fprintf(out, "No other-net zones on %s\n", b.Name)
				return nil
			}
			titleColor.Fprintf(out, "%-16s %-12s %s\n", "ZONE", "NET", "LAYERS")
			for _, z := range zones {
				layers := make([]string, len(z.Layers))
				for i, l := range z.Layers {
					layers[i] = string(l)
				}
				fmt.Fprintf(out, "%-16s %-12s %s\n", z.ID, z.Net, strings.Join(layers, ","))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&boardPath, "board", "b", "", "Board file (YAML or JSON)")
	cmd.Flags().StringVarP(&net, "net", "n", "", "Net to be stitched")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	_ = cmd.MarkFlagRequired("board")
	_ = cmd.MarkFlagRequired("net")
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
