// Command traffiti trains and evaluates a reinforcement learning
// controller for the traffic light of a single intersection.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/samuelfneumann/traffiti/config"
	"github.com/samuelfneumann/traffiti/experiment"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "traffiti",
	Short: "Reinforcement learning traffic light control",
	Long: `traffiti trains a Q-learning agent to control the traffic light of a
single four-way intersection simulated by SUMO or by a built-in
simulator.`,
	SilenceUsage: true,
}

// Flags shared by train and eval
var (
	configFile string
	noGUI      bool
	backend    string
	epochs     int
)

// Train flags
var (
	steps    int
	resume   string
	progress bool
)

// Eval flags
var weights string

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the controller",
	Long: `Train the controller for a number of epochs. Each epoch runs one
episode on a fresh simulation, appends its results to the results log
and saves the parameters of the controller into the checkpoint
directory.`,
	Example: `  # Train headless on SUMO
  traffiti train --nogui

  # Train on the built-in simulator for 10 epochs
  traffiti train --backend builtin --epochs 10 --progress

  # Resume from the parameters saved after epoch 42
  traffiti train --resume weights/42.gob`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := load(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("steps") {
			c.Experiment.Steps = steps
		}
		if progress {
			c.Experiment.Progress = true
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		a, err := c.NewAgent()
		if err != nil {
			return err
		}
		if resume != "" {
			if err := a.Load(resume); err != nil {
				return err
			}
			if epoch, ok := epochOf(resume); ok {
				a.SetEpoch(epoch)
				a.SetEpsilon(c.Agent.EpsilonAfter(epoch * c.Experiment.Steps))
			}
			log.Printf("resuming from %v at epoch %v, epsilon %.3f", resume,
				a.Epoch(), a.Epsilon())
		}

		t, closeTrackers, err := c.Trackers()
		if err != nil {
			return err
		}
		defer closeTrackers()

		b, err := c.Backend()
		if err != nil {
			return err
		}

		online := c.Online()
		if c.Experiment.Progress {
			online.Progress = os.Stdout
		}
		exp, err := experiment.NewOnline(b, a, online, t...)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(),
			syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runErr := exp.Run(ctx, c.Experiment.Epochs)
		if err := exp.Save(); err != nil {
			log.Printf("could not save results: %v", err)
		}
		return runErr
	},
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate trained parameters",
	Long: `Evaluate the controller with previously saved parameters. The
controller acts greedily and does not learn, and no parameters are
saved.`,
	Example: `  traffiti eval --weights weights/100.gob --nogui`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := load(cmd)
		if err != nil {
			return err
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		a, err := c.NewAgent()
		if err != nil {
			return err
		}
		if err := a.Load(weights); err != nil {
			return err
		}
		a.Eval()

		b, err := c.Backend()
		if err != nil {
			return err
		}
		exp, err := experiment.NewOnline(b, a, c.Online())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(),
			syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		n := 1
		if cmd.Flags().Changed("epochs") {
			n = epochs
		}
		return exp.Run(ctx, n)
	},
}

// load loads the configuration and applies the flags shared by all
// commands
func load(cmd *cobra.Command) (config.Config, error) {
	c := config.Default()
	if configFile != "" {
		var err error
		if c, err = config.Load(configFile); err != nil {
			return config.Config{}, err
		}
	}

	if noGUI {
		c.Environment.GUI = false
	}
	if cmd.Flags().Changed("backend") {
		c.Environment.Backend = backend
	}
	if cmd.Flags().Changed("epochs") {
		c.Experiment.Epochs = epochs
	}
	return c, nil
}

// epochOf returns the epoch encoded in the name of a checkpoint file
func epochOf(path string) (int, bool) {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	epoch, err := strconv.Atoi(name)
	if err != nil || epoch < 0 {
		return 0, false
	}
	return epoch, true
}

func init() {
	for _, cmd := range []*cobra.Command{trainCmd, evalCmd} {
		cmd.Flags().StringVarP(&configFile, "config", "c", "",
			"JSON configuration file")
		cmd.Flags().BoolVar(&noGUI, "nogui", false,
			"Run without the simulator GUI")
		cmd.Flags().StringVarP(&backend, "backend", "b", config.Sumo,
			"Simulation backend (sumo or builtin)")
		cmd.Flags().IntVarP(&epochs, "epochs", "e", 0,
			"Number of epochs to run")
	}

	trainCmd.Flags().IntVarP(&steps, "steps", "s", 0,
		"Control steps per episode")
	trainCmd.Flags().StringVarP(&resume, "resume", "r", "",
		"Parameter file to resume training from")
	trainCmd.Flags().BoolVarP(&progress, "progress", "p", false,
		"Display a progress bar of each episode")
	rootCmd.AddCommand(trainCmd)

	evalCmd.Flags().StringVarP(&weights, "weights", "w", "",
		"Parameter file to evaluate (required)")
	evalCmd.MarkFlagRequired("weights")
	rootCmd.AddCommand(evalCmd)
}
