package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joeycumines/go-desim/internal/config"
	"github.com/joeycumines/go-desim/internal/simlog"
	"github.com/joeycumines/go-desim/simtime"
	"github.com/joeycumines/go-desim/simulator"
)

func runCmd() *cobra.Command {
	var (
		scriptPath string
		entryFn    string
		procName   string
		horizon    float64
		seed       int64
		resources  []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load one script and run the simulation to a horizon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configFile != "" {
				var err error
				cfg, err = config.LoadFromFile(configFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
			}

			if configFile == "" || cmd.Flags().Changed("horizon") {
				cfg.Horizon = horizon
			}
			if configFile == "" || cmd.Flags().Changed("seed") {
				cfg.Seed = seed
			}
			for _, spec := range resources {
				rs, err := parseResourceFlag(spec)
				if err != nil {
					return err
				}
				cfg.Resources = append(cfg.Resources, rs)
			}
			if scriptPath != "" {
				cfg.Processes = append(cfg.Processes, config.ProcessSpec{
					Name:   procName,
					Script: scriptPath,
					Fn:     entryFn,
				})
			}

			sim := simulator.New(simlog.New(os.Stderr))
			sim.SetSeed(cfg.Seed)

			for _, r := range cfg.Resources {
				if err := sim.CreateResource(r.Name, r.Capacity); err != nil {
					return fmt.Errorf("create resource %q: %w", r.Name, err)
				}
			}
			for _, p := range cfg.Processes {
				source, err := os.ReadFile(p.Script)
				if err != nil {
					return fmt.Errorf("read script %q: %w", p.Script, err)
				}
				if err := sim.LoadProcess(p.Name, string(source), p.Fn); err != nil {
					return fmt.Errorf("load process %q: %w", p.Name, err)
				}
			}

			result, err := sim.Run(simtime.FromSeconds(cfg.Horizon))
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "outcome=%s final_time=%g\n", result.Outcome, result.FinalTime)

			out, err := json.MarshalIndent(sim.Stats(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&scriptPath, "script", "", "path to a JS source file defining the entry function")
	cmd.Flags().StringVar(&entryFn, "fn", "main", "entry generator function name")
	cmd.Flags().StringVar(&procName, "name", "p", "process name for the loaded script")
	cmd.Flags().Float64Var(&horizon, "horizon", 10, "run horizon, in seconds")
	cmd.Flags().Int64Var(&seed, "seed", 0, "determinism seed for Math.random")
	cmd.Flags().StringArrayVar(&resources, "resource", nil, "resource spec name:capacity, repeatable")

	return cmd
}

func parseResourceFlag(spec string) (config.ResourceSpec, error) {
	name, capStr, found := strings.Cut(spec, ":")
	capacity, err := strconv.ParseUint(capStr, 10, 64)
	if !found || name == "" || err != nil {
		return config.ResourceSpec{}, fmt.Errorf("invalid --resource %q, want name:capacity", spec)
	}
	return config.ResourceSpec{Name: name, Capacity: capacity}, nil
}
