package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mr1hm/sentinel-sea/internal/models"
	"github.com/mr1hm/sentinel-sea/internal/threat"
)

func scoreCommand() *cobra.Command {
	var (
		size, ais     string
		insideMPA     bool
		area, intense float64
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Show the threat score the heuristics give a detection",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, ok := models.ParseAISStatus(ais)
			if !ok {
				return fmt.Errorf("ais must be ON or OFF, got %q", ais)
			}

			var score int
			if area > 0 {
				c := threat.ClassifySAR(area, intense)
				score = c.ThreatScore
				fmt.Fprintf(cmd.OutOrStdout(), "SAR class: %s (~%dm)\n", c.SizeLabel, c.EstimatedLength)
			} else {
				score = threat.Score(&models.Detection{VesselSize: size, AISStatus: status, InsideMPA: insideMPA})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "threat score: %d (%s)\n", score, threat.Level(score))
			return nil
		},
	}

	cmd.Flags().StringVar(&size, "size", "", `vessel size label, e.g. "Large (45-60m)"`)
	cmd.Flags().StringVar(&ais, "ais", "OFF", "AIS status (ON or OFF)")
	cmd.Flags().BoolVar(&insideMPA, "mpa", false, "detection is inside a protected area")
	cmd.Flags().Float64Var(&area, "sar-area", 0, "SAR target area in square metres")
	cmd.Flags().Float64Var(&intense, "sar-intensity", 180, "SAR backscatter intensity")
	return cmd
}
