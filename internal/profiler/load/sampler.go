// Package load samples host load for reports and the load impact rule.
package load

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/coral-mesh/skprof/internal/constants"
)

// Gauge reads the current load value.
type Gauge func(ctx context.Context) (float64, error)

// CPUGauge returns host CPU utilisation in percent, across all cores.
func CPUGauge(ctx context.Context) (float64, error) {
	percentages, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, fmt.Errorf("failed to get CPU percent: %w", err)
	}
	if len(percentages) == 0 {
		return 0, fmt.Errorf("no CPU percentages returned")
	}
	return percentages[0], nil
}

// MemoryGauge returns used host memory in percent.
func MemoryGauge(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get memory stats: %w", err)
	}
	return vm.UsedPercent, nil
}

// GaugeFor maps a configured source name to a gauge.
func GaugeFor(source string) (Gauge, error) {
	switch source {
	case "", "cpu":
		return CPUGauge, nil
	case "memory":
		return MemoryGauge, nil
	default:
		return nil, fmt.Errorf("unknown load source %q", source)
	}
}

// Config configures a Sampler.
type Config struct {
	Interval time.Duration
	// WarnThreshold logs a warning for samples above it. Zero disables it.
	WarnThreshold float64
}

// DefaultConfig returns the default sampler configuration.
func DefaultConfig() Config {
	return Config{
		Interval:      constants.DefaultLoadInterval,
		WarnThreshold: constants.DefaultLoadWarnThreshold,
	}
}

// Sampler periodically reads a Gauge and keeps the last good value.
type Sampler struct {
	cfg    Config
	gauge  Gauge
	logger zerolog.Logger

	last    atomic.Uint64 // math.Float64bits of the last good sample
	sampled atomic.Bool
}

// NewSampler creates a sampler. A nil gauge means CPUGauge.
func NewSampler(cfg Config, gauge Gauge, logger zerolog.Logger) *Sampler {
	if cfg.Interval <= 0 {
		cfg.Interval = constants.DefaultLoadInterval
	}
	if gauge == nil {
		gauge = CPUGauge
	}
	return &Sampler{
		cfg:    cfg,
		gauge:  gauge,
		logger: logger.With().Str("component", "load_sampler").Logger(),
	}
}

// Start samples at the configured interval until ctx is cancelled.
func (s *Sampler) Start(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.cfg.Interval).Msg("Starting load sampler")

	if _, err := s.Sample(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Initial load sample failed")
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Stopping load sampler")
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Sample(ctx); err != nil {
				s.logger.Warn().Err(err).Float64("last_known", s.Current()).Msg("Failed to sample load")
			}
		}
	}
}

// Sample reads the gauge once. On failure the last good value is kept.
func (s *Sampler) Sample(ctx context.Context) (float64, error) {
	v, err := s.gauge(ctx)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid load sample %v", v)
	}

	s.last.Store(math.Float64bits(v))
	s.sampled.Store(true)

	if s.cfg.WarnThreshold > 0 && v > s.cfg.WarnThreshold {
		s.logger.Warn().Float64("load", v).Float64("threshold", s.cfg.WarnThreshold).Msg("Host load above threshold")
	}
	return v, nil
}

// Last returns the last good sample and whether one exists.
func (s *Sampler) Last() (float64, bool) {
	if !s.sampled.Load() {
		return 0, false
	}
	return math.Float64frombits(s.last.Load()), true
}

// Current returns the last good sample, or constants.DefaultLoad when
// sampling never succeeded.
func (s *Sampler) Current() float64 {
	if v, ok := s.Last(); ok {
		return v
	}
	return constants.DefaultLoad
}

// Static is a load source with a fixed value.
type Static float64

// Current returns the fixed value.
func (v Static) Current() float64 {
	return float64(v)
}
