package config

import "time"

// SimulationConfig holds simulator loop configuration
type SimulationConfig struct {
	// Simulation time step per tick, in model time units
	TickSize float64 `mapstructure:"tick_size" validate:"gt=0"`

	// Model time at which the run stops
	TimeStop float64 `mapstructure:"time_stop" validate:"gte=0"`

	// Throttle the loop to wall-clock time (one tick per TickSize seconds)
	Pace bool `mapstructure:"pace"`

	// Upper bound on the per-tick wait for agents to finish negotiating
	QuiesceTimeout time.Duration `mapstructure:"quiesce_timeout"`

	// Scoring weights for variant selection
	Weights WeightsConfig `mapstructure:"weights"`
}

// WeightsConfig holds the multi-criteria scoring weights. They are not
// required to sum to one; relative magnitude is what matters.
type WeightsConfig struct {
	Finish float64 `mapstructure:"finish" validate:"gte=0"`
	Start  float64 `mapstructure:"start" validate:"gte=0"`
	Price  float64 `mapstructure:"price" validate:"gte=0"`
}
