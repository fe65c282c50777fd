package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mr1hm/sentinel-sea/internal/geo"
	"github.com/mr1hm/sentinel-sea/internal/simulation"
)

func zonesCommand() *cobra.Command {
	var lat, lon float64

	cmd := &cobra.Command{
		Use:   "zones",
		Short: "List watched zones or locate a position",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				if !geo.ValidCoordinate(lat, lon) {
					return fmt.Errorf("invalid coordinate %.4f, %.4f", lat, lon)
				}
				if mpa, ok := geo.NewIndex(geo.DefaultMPAs()).Locate(lat, lon); ok {
					fmt.Fprintf(out, "inside %s\n", mpa.Name)
				} else {
					fmt.Fprintln(out, "outside all protected areas")
				}
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ZONE\tLAT\tLON\tMPA")
			for _, z := range simulation.MaritimeZones {
				fmt.Fprintf(w, "%s\t%.1f..%.1f\t%.1f..%.1f\t%t\n", z.Name, z.LatMin, z.LatMax, z.LonMin, z.LonMax, z.MPA)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "PROTECTED AREA\tVERTICES\tESTABLISHED\t")
			for _, mpa := range geo.DefaultMPAs() {
				fmt.Fprintf(w, "%s\t%d\t%d\t\n", mpa.Name, len(mpa.Coordinates), mpa.Established)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude to locate")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude to locate")
	return cmd
}
