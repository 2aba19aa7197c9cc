package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/samirrijal/gigmap/internal/core/domain"
	"github.com/samirrijal/gigmap/internal/core/usecases"
	"github.com/samirrijal/gigmap/internal/pkg/geospatial"
	"github.com/samirrijal/gigmap/internal/pkg/similarity"
)

func newResolveCmd() *cobra.Command {
	var internalPath, externalPath string
	var explain bool

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Deduplicate external candidates against internal venues",
		Long: `Resolve reads a JSON array of internal venues and a JSON array of
external candidates and prints the resolved candidate set.

With --explain, every dropped candidate is listed with the rule that matched it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var internal []domain.InternalVenue
			if internalPath != "" {
				if err := readJSON(internalPath, &internal); err != nil {
					return err
				}
			}
			var external []domain.ExternalCandidate
			if err := readJSON(externalPath, &external); err != nil {
				return err
			}

			set, dups := usecases.ResolveWithDuplicates(internal, external)
			if explain {
				for _, d := range dups {
					fmt.Fprintf(cmd.ErrOrStderr(), "drop %s (%s) -> venue %s [%s]\n",
						d.Candidate.ExternalID, d.Candidate.Name, d.VenueID, d.Tier)
				}
			}
			return writeJSON(cmd.OutOrStdout(), set)
		},
	}
	cmd.Flags().StringVar(&internalPath, "internal", "", "JSON file of internal venues")
	cmd.Flags().StringVar(&externalPath, "external", "", "JSON file of external candidates")
	cmd.Flags().BoolVar(&explain, "explain", false, "Report dropped duplicates on stderr")
	_ = cmd.MarkFlagRequired("external")
	return cmd
}

type groupOutput struct {
	LocationKey string            `json:"location_key"`
	Coordinate  domain.Coordinate `json:"coordinate"`
	EventCount  int               `json:"event_count"`
	EventIDs    []string          `json:"event_ids"`
}

func newGroupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "group EVENTS.json",
		Short: "Group events by location key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var events []domain.GeoEvent
			if err := readJSON(args[0], &events); err != nil {
				return err
			}

			groups := usecases.Group(events)
			out := make([]groupOutput, 0, len(groups))
			for key, g := range groups {
				ids := make([]string, len(g.Events))
				for i, e := range g.Events {
					ids[i] = e.ID
				}
				out = append(out, groupOutput{LocationKey: key, Coordinate: g.Coordinate, EventCount: len(ids), EventIDs: ids})
			}
			sort.Slice(out, func(i, j int) bool { return out[i].LocationKey < out[j].LocationKey })
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func newSimilarityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "similarity A B",
		Short: "Print the normalized name similarity score of two names",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			score := similarity.Similarity(args[0], args[1])
			match := score > usecases.NameSimilarityThreshold
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%d match=%t\n", score, match)
			return err
		},
	}
}

func newDistanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "distance LAT1 LON1 LAT2 LON2",
		Short: "Print the great-circle distance between two points in meters",
		// negative coordinates such as -0.1 would otherwise parse as shorthand flags
		DisableFlagParsing: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if isHelp(args) {
				return nil
			}
			return cobra.ExactArgs(4)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if isHelp(args) {
				return cmd.Help()
			}
			v := make([]float64, 4)
			for i, a := range args {
				f, err := strconv.ParseFloat(a, 64)
				if err != nil {
					return fmt.Errorf("argument %d: %w", i+1, err)
				}
				v[i] = f
			}
			a := domain.Coordinate{Lat: v[0], Lon: v[1]}
			b := domain.Coordinate{Lat: v[2], Lon: v[3]}
			if !a.Valid() || !b.Valid() {
				return domain.ErrInvalidCoordinate
			}
			d := geospatial.Distance(a, b)
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%.1f\n", d)
			return err
		},
	}
}

func isHelp(args []string) bool {
	return len(args) == 1 && (args[0] == "-h" || args[0] == "--help")
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
