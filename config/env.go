package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override the configuration.
const (
	EnvSeed             = "NOCSIM_SEED"
	EnvNumCycles        = "NOCSIM_NUM_CYCLES"
	EnvFaultProbability = "NOCSIM_FAULT_PROBABILITY"
	EnvInjectionRate    = "NOCSIM_INJECTION_RATE"
	EnvFaultPolicy      = "NOCSIM_FAULT_POLICY"
)

// ApplyEnv overrides cfg with values from the given dotenv files and then
// from the process environment, which takes precedence. Missing files are
// skipped.
func ApplyEnv(cfg *Config, files ...string) error {
	values := map[string]string{}

	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		fileValues, err := godotenv.Read(f)
		if err != nil {
			return fmt.Errorf("reading %s: %w", f, err)
		}

		for k, v := range fileValues {
			values[k] = v
		}
	}

	for _, key := range []string{
		EnvSeed, EnvNumCycles, EnvFaultProbability, EnvInjectionRate, EnvFaultPolicy,
	} {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}

	return apply(cfg, values)
}

func apply(cfg *Config, values map[string]string) error {
	if v, ok := values[EnvSeed]; ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSeed, err)
		}

		cfg.Seed = seed
	}

	if v, ok := values[EnvNumCycles]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvNumCycles, err)
		}

		cfg.NumCycles = n
	}

	if v, ok := values[EnvFaultProbability]; ok {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvFaultProbability, err)
		}

		cfg.FaultProbability = p
	}

	if v, ok := values[EnvInjectionRate]; ok {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvInjectionRate, err)
		}

		cfg.PacketInjectionRate = r
	}

	if v, ok := values[EnvFaultPolicy]; ok {
		cfg.FaultPolicy = v
	}

	return nil
}
