package parser

import (
	"fmt"
	"regexp"
)

// Default header patterns and bounds for HWiNFO style CSV logs.
const (
	DefaultVoltageHeaderPattern = `Core\s+(?P<index>\d+)\s+VID`
	DefaultClockHeaderPattern   = `Core\s+(?P<index>\d+)\s+Clock`
	DefaultMinVoltage           = 0
	DefaultMaxVoltage           = 2
	DefaultMinClock             = 0
	DefaultMaxClock             = 10000
)

// indexGroup is the capture group holding the core id in header patterns.
const indexGroup = "index"

// Config holds the parser tunables. It is copied into the parser at
// construction and never changes afterwards.
type Config struct {
	VoltageHeaderPattern string  `yaml:"voltage_header_pattern" json:"voltage_header_pattern"`
	ClockHeaderPattern   string  `yaml:"clock_header_pattern" json:"clock_header_pattern"`
	MinVoltage           float64 `yaml:"min_voltage" json:"min_voltage"`
	MaxVoltage           float64 `yaml:"max_voltage" json:"max_voltage"`
	MinClock             float64 `yaml:"min_clock" json:"min_clock"`
	MaxClock             float64 `yaml:"max_clock" json:"max_clock"`
}

// DefaultConfig returns the default parser configuration
func DefaultConfig() Config {
	return Config{
		VoltageHeaderPattern: DefaultVoltageHeaderPattern,
		ClockHeaderPattern:   DefaultClockHeaderPattern,
		MinVoltage:           DefaultMinVoltage,
		MaxVoltage:           DefaultMaxVoltage,
		MinClock:             DefaultMinClock,
		MaxClock:             DefaultMaxClock,
	}
}

// Validate checks that both patterns compile with a capture group and that
// every bound pair has min < max.
func (c Config) Validate() error {
	_, err := c.compile()
	return err
}

// headerPatterns are the compiled header patterns of a valid Config.
type headerPatterns struct {
	voltage *regexp.Regexp
	clock   *regexp.Regexp
}

// compile validates c and returns its compiled header patterns.
func (c Config) compile() (headerPatterns, error) {
	voltage, err := compileHeaderPattern("voltage", c.VoltageHeaderPattern)
	if err != nil {
		return headerPatterns{}, err
	}
	clock, err := compileHeaderPattern("clock", c.ClockHeaderPattern)
	if err != nil {
		return headerPatterns{}, err
	}
	if c.MinVoltage >= c.MaxVoltage {
		return headerPatterns{}, fmt.Errorf("min_voltage (%g) must be less than max_voltage (%g)", c.MinVoltage, c.MaxVoltage)
	}
	if c.MinClock >= c.MaxClock {
		return headerPatterns{}, fmt.Errorf("min_clock (%g) must be less than max_clock (%g)", c.MinClock, c.MaxClock)
	}
	return headerPatterns{voltage: voltage, clock: clock}, nil
}

func compileHeaderPattern(kind, pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%s header pattern is empty", kind)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid %s header pattern: %w", kind, err)
	}
	if re.NumSubexp() == 0 {
		return nil, fmt.Errorf("%s header pattern %q has no capture group for the core index", kind, pattern)
	}
	return re, nil
}

// inVoltageRange reports whether v lies within the inclusive voltage bounds.
func (c Config) inVoltageRange(v float64) bool {
	return v >= c.MinVoltage && v <= c.MaxVoltage
}

// inClockRange reports whether v lies within the inclusive clock bounds.
func (c Config) inClockRange(v float64) bool {
	return v >= c.MinClock && v <= c.MaxClock
}
