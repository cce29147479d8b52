// Package input produces human-like timing and mouse trajectories.
package input

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Tick-based delay presets.
const (
	shortDelayMean   = 1
	shortDelayStdDev = 1
	shortDelayMin    = 1

	mediumDelayMean   = 3
	mediumDelayStdDev = 1
	mediumDelayMin    = 2

	longDelayMean   = 5
	longDelayStdDev = 2
	longDelayMin    = 3
)

// Humanizer draws delays from a normal distribution clamped to a minimum.
// Delays are expressed in game ticks unless stated otherwise.
// It is safe for concurrent use.
type Humanizer struct {
	mu     sync.Mutex
	rng    *rand.Rand
	logger *slog.Logger
}

// NewHumanizer creates a humanizer seeded from the clock.
func NewHumanizer(logger *slog.Logger) *Humanizer {
	seed := uint64(time.Now().UnixNano())
	return NewHumanizerWithSource(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15), logger)
}

// NewHumanizerWithSource creates a humanizer with a fixed random source.
func NewHumanizerWithSource(src rand.Source, logger *slog.Logger) *Humanizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Humanizer{
		rng:    rand.New(src),
		logger: logger.With("component", "humanizer"),
	}
}

// Short is a delay of about one tick.
func (h *Humanizer) Short() int {
	return h.Custom(shortDelayMean, shortDelayStdDev, shortDelayMin)
}

// Medium is a delay of about three ticks.
func (h *Humanizer) Medium() int {
	return h.Custom(mediumDelayMean, mediumDelayStdDev, mediumDelayMin)
}

// Long is a delay of about five ticks.
func (h *Humanizer) Long() int {
	return h.Custom(longDelayMean, longDelayStdDev, longDelayMin)
}

// Custom returns round(N(mean, stdDev)) but never less than minTicks.
func (h *Humanizer) Custom(mean, stdDev, minTicks int) int {
	delay := int(math.Round(h.Gaussian(float64(mean), float64(stdDev))))
	delay = max(delay, minTicks)
	h.logger.Debug("humanized delay", "ticks", delay)
	return delay
}

// Range returns a delay centred in [minTicks, maxTicks] with the range covering
// three standard deviations either side, clamped to the range.
func (h *Humanizer) Range(minTicks, maxTicks int) int {
	if minTicks >= maxTicks {
		return minTicks
	}
	mean := (minTicks + maxTicks) / 2
	stdDev := max(1, (maxTicks-minTicks)/6)
	return min(h.Custom(mean, stdDev, minTicks), maxTicks)
}

// Random is the delay used after a task action: a Range draw.
func (h *Humanizer) Random(minTicks, maxTicks int) int {
	return h.Range(minTicks, maxTicks)
}

// Gaussian returns a raw normal sample.
func (h *Humanizer) Gaussian(mean, stdDev float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.NormFloat64()*stdDev + mean
}

// Millis returns a uniform duration in [minMs, maxMs] milliseconds.
func (h *Humanizer) Millis(minMs, maxMs int) time.Duration {
	if maxMs <= minMs {
		return time.Duration(max(minMs, 0)) * time.Millisecond
	}
	h.mu.Lock()
	n := minMs + h.rng.IntN(maxMs-minMs+1)
	h.mu.Unlock()
	return time.Duration(n) * time.Millisecond
}

// Float64 returns a uniform sample in [0, 1).
func (h *Humanizer) Float64() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rng.Float64()
}
