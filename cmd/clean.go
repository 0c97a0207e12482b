package main

import (
	"context"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/chart-etl/internal/fetcher"
	"github.com/sells-group/chart-etl/internal/model"
	"github.com/sells-group/chart-etl/internal/transform"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean one dataset",
	Long:  "Runs one cleaning stage on a CSV or JSON file and writes the cleaned rows as a JSON array.",
}

var cleanTracksCmd = &cobra.Command{
	Use:   "tracks",
	Short: "Clean the tracks dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runClean(cmd, transform.StageTracks)
	},
}

var cleanAwardsCmd = &cobra.Command{
	Use:   "awards",
	Short: "Clean the awards dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runClean(cmd, transform.StageAwards)
	},
}

var cleanEnrichmentCmd = &cobra.Command{
	Use:   "enrichment",
	Short: "Clean the artist enrichment dataset",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runClean(cmd, transform.StageEnrichment)
	},
}

func init() {
	for _, c := range []*cobra.Command{cleanTracksCmd, cleanAwardsCmd, cleanEnrichmentCmd} {
		c.Flags().String("in", "", "input file (.csv or .json)")
		c.Flags().String("out", "-", "output JSON file, - for stdout")
		_ = c.MarkFlagRequired("in")
		cleanCmd.AddCommand(c)
	}
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, stage string) error {
	in, _ := cmd.Flags().GetString("in")
	out, _ := cmd.Flags().GetString("out")

	frame, err := readIntermediate(cmd.Context(), stage, in)
	if err != nil {
		return err
	}
	cleaned, err := cleanFrame(transform.DefaultRules(), stage, frame)
	if err != nil {
		return err
	}
	return writeIntermediate(out, cleaned)
}

// cleanFrame runs the cleaner for stage and renders its output as a frame.
func cleanFrame(rules *transform.Rules, stage string, f model.Frame) (model.Frame, error) {
	switch stage {
	case transform.StageTracks:
		tracks, err := rules.CleanTrackFrame(f)
		if err != nil {
			return model.Frame{}, err
		}
		return model.FrameOf(model.TrackColumns, tracks), nil
	case transform.StageAwards:
		awards, err := rules.CleanAwardFrame(f)
		if err != nil {
			return model.Frame{}, err
		}
		return model.FrameOf(model.AwardColumns, awards), nil
	case transform.StageEnrichment:
		rows, err := transform.CleanEnrichmentFrame(f)
		if err != nil {
			return model.Frame{}, err
		}
		return model.FrameOf(model.EnrichmentColumns, rows), nil
	default:
		return model.Frame{}, eris.Errorf("clean: unknown stage %q", stage)
	}
}

// readIntermediate opens location and parses it. Payloads that cannot be
// parsed are reported as a DecodeError for stage.
func readIntermediate(ctx context.Context, stage, location string) (model.Frame, error) {
	body, err := fetcher.NewRouter().Download(ctx, location)
	if err != nil {
		return model.Frame{}, err
	}
	defer body.Close() //nolint:errcheck

	frame, err := fetcher.ParseFrame(ctx, location, body)
	if err != nil {
		return model.Frame{}, &transform.DecodeError{Stage: stage, Row: -1, Err: err}
	}
	zap.L().Debug("read intermediate",
		zap.String("stage", stage),
		zap.String("location", location),
		zap.Int("rows", frame.Len()),
	)
	return frame, nil
}

// writeIntermediate writes f as a JSON array to path, or stdout for "-".
func writeIntermediate(path string, f model.Frame) error {
	var w io.Writer = os.Stdout
	if path != "-" && path != "" {
		file, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create %s", path)
		}
		defer file.Close() //nolint:errcheck
		w = file
	}
	if err := model.EncodeJSON(w, f); err != nil {
		return eris.Wrap(err, "encode output")
	}
	return nil
}
