package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/faultnoc/config"
	"github.com/sarchlab/faultnoc/noc/mesh"
)

func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Configuration file (.yaml, .yml or .json)")
	cmd.Flags().String("env", ".env", "Dotenv file with NOCSIM_* overrides")
	cmd.Flags().Uint64("seed", 0, "Random seed")
	cmd.Flags().Int("cycles", 0, "Number of cycles to simulate")
	cmd.Flags().Float64("fault-probability", 0, "Per-cycle fault probability")
	cmd.Flags().Float64("injection-rate", 0, "Packets injected per cycle")
	cmd.Flags().String("fault-policy", "", "Fault policy (transient or sticky)")
}

// loadConfig applies, in order, the defaults, the configuration file, the
// environment and the flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		var err error

		cfg, err = config.Load(path)
		if err != nil {
			return cfg, err
		}
	}

	envFile, _ := cmd.Flags().GetString("env")

	err := config.ApplyEnv(&cfg, envFile)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()

	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetUint64("seed")
	}

	if flags.Changed("cycles") {
		cfg.NumCycles, _ = flags.GetInt("cycles")
	}

	if flags.Changed("fault-probability") {
		cfg.FaultProbability, _ = flags.GetFloat64("fault-probability")
	}

	if flags.Changed("injection-rate") {
		cfg.PacketInjectionRate, _ = flags.GetFloat64("injection-rate")
	}

	if flags.Changed("fault-policy") {
		cfg.FaultPolicy, _ = flags.GetString("fault-policy")
	}

	return cfg, cfg.Validate()
}

// parseCoordinate parses "row,col,layer".
func parseCoordinate(s string) (mesh.Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return mesh.Coordinate{}, fmt.Errorf("coordinate %q is not row,col,layer", s)
	}

	var v [3]int

	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return mesh.Coordinate{}, fmt.Errorf("coordinate %q: %w", s, err)
		}

		v[i] = n
	}

	return mesh.Coordinate{Row: v[0], Col: v[1], Layer: v[2]}, nil
}
