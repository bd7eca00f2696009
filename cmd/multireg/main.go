// Command multireg registers a moving image onto a fixed image using the
// multi-metric, multi-resolution registration engine. Runs are configured
// through a YAML parameter file; see the params subcommand for a starting
// point.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"multireg/pkg/config"
)

var (
	verbose bool
	log     = logrus.New()
)

func main() {
	root := &cobra.Command{
		Use:   "multireg",
		Short: "Multi-metric multi-resolution image registration",
		Long: "multireg estimates the spatial transform aligning a moving image " +
			"onto a fixed image by minimizing a weighted combination of " +
			"similarity metrics over a coarse-to-fine resolution pyramid.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable per-iteration logging")

	root.AddCommand(newRunCommand())
	root.AddCommand(newParamsCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRunCommand() *cobra.Command {
	var (
		paramsPath     string
		fixedMaskPath  string
		movingMaskPath string
		outputPath     string
	)

	cmd := &cobra.Command{
		Use:   "run <fixed-image> <moving-image>",
		Short: "Run a registration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fixed, err := loadImage(args[0])
			if err != nil {
				return fmt.Errorf("loading fixed image: %w", err)
			}
			moving, err := loadImage(args[1])
			if err != nil {
				return fmt.Errorf("loading moving image: %w", err)
			}

			fixedMask, err := loadMask(fixedMaskPath)
			if err != nil {
				return fmt.Errorf("loading fixed mask: %w", err)
			}
			movingMask, err := loadMask(movingMaskPath)
			if err != nil {
				return fmt.Errorf("loading moving mask: %w", err)
			}

			params, err := config.Load(paramsPath)
			if err != nil {
				return err
			}

			reg, err := config.Build(params, fixed, moving, fixedMask, movingMask, logrus.NewEntry(log))
			if err != nil {
				return err
			}

			start := time.Now()
			result, err := reg.Run(nil)
			if err != nil {
				log.WithFields(logrus.Fields{
					"state": reg.State().String(),
					"level": reg.Level(),
				}).Error("registration failed")
				return err
			}

			log.WithFields(logrus.Fields{
				"elapsed": time.Since(start).Round(time.Millisecond),
				"levels":  result.Levels,
			}).Info("registration finished")

			fmt.Printf("run %s\n", result.RunID)
			for l, p := range result.LevelParameters {
				fmt.Printf("level %d parameters: %v\n", l, p)
			}
			fmt.Printf("final parameters: %v\n", result.FinalParameters)
			for i, v := range reg.MetricValues() {
				fmt.Printf("metric %d value: %g\n", i, v)
			}

			if outputPath != "" {
				tr, err := config.NewTransform(params.Registration.Transform, fixed)
				if err != nil {
					return err
				}
				registered := resample(fixed, moving, tr, result.FinalParameters)
				if err := saveImage(registered, outputPath); err != nil {
					return fmt.Errorf("writing registered image: %w", err)
				}
				fmt.Printf("registered image written to %s\n", outputPath)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&paramsPath, "params", "p", "multireg.yaml", "YAML parameter file")
	cmd.Flags().StringVar(&fixedMaskPath, "fixed-mask", "", "fixed-image mask (non-black pixels are inside)")
	cmd.Flags().StringVar(&movingMaskPath, "moving-mask", "", "moving-image mask (non-black pixels are inside)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the moving image resampled onto the fixed grid")

	return cmd
}

func newParamsCommand() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "params",
		Short: "Write a default parameter file",
		Long: fmt.Sprintf("Writes a parameter file with the engine defaults.\n\n"+
			"Available metrics: %v\nAvailable pyramids: %v\nAvailable transforms: %v",
			config.MetricNames(), config.PyramidNames(), config.TransformNames()),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(config.DefaultParameters(), outputPath); err != nil {
				return err
			}
			fmt.Printf("default parameters written to %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "multireg.yaml", "output path")

	return cmd
}
