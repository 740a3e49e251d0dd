// Package sim generates synthetic sensor readings for the simulated source.
//
// Each channel performs a bounded random walk: every Next call moves the value
// by a uniform step in [-Step, +Step] and clamps it into [Min, Max]. An
// optional smoothing factor blends each new value into the previous output.
package sim

import (
	"math"
	"math/rand"
	"time"
)

// Channel describes one simulated quantity.
type Channel struct {
	Name  string
	Unit  string
	Start float64
	Min   float64
	Max   float64
	Step  float64
}

// DefaultChannels are the readings produced by the simulated source.
var DefaultChannels = []Channel{
	{Name: "temperature", Unit: "°C", Start: 23.0, Min: 22.0, Max: 24.0, Step: 0.2},
	{Name: "humidity", Unit: "%", Start: 45.0, Min: 30.0, Max: 60.0, Step: 0.5},
	{Name: "co2", Unit: "ppm", Start: 650.0, Min: 400.0, Max: 1200.0, Step: 10.0},
}

// Reading maps channel name to value.
type Reading map[string]float64

// Simulator is not safe for concurrent use; the connection manager drives it
// from a single goroutine.
type Simulator struct {
	channels  []Channel
	raw       []float64
	smoothed  []float64
	smoothing float64
	rnd       *rand.Rand
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithSmoothing sets the exponential smoothing factor, clamped to [0, 1].
// 0 disables smoothing.
func WithSmoothing(f float64) Option {
	return func(s *Simulator) { s.smoothing = clamp(f, 0, 1) }
}

// WithRand replaces the random source, for deterministic tests.
func WithRand(r *rand.Rand) Option {
	return func(s *Simulator) { s.rnd = r }
}

// WithChannels replaces DefaultChannels.
func WithChannels(ch []Channel) Option {
	return func(s *Simulator) { s.channels = ch }
}

// New returns a Simulator positioned at each channel's start value.
func New(opts ...Option) *Simulator {
	s := &Simulator{channels: DefaultChannels}
	for _, o := range opts {
		o(s)
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.raw = make([]float64, len(s.channels))
	s.smoothed = make([]float64, len(s.channels))
	for i, c := range s.channels {
		start := clamp(c.Start, c.Min, c.Max)
		s.raw[i] = start
		s.smoothed[i] = start
	}
	return s
}

// Channels returns the simulated channels.
func (s *Simulator) Channels() []Channel {
	return s.channels
}

// Next advances every channel by one step and returns the new reading.
func (s *Simulator) Next() Reading {
	out := make(Reading, len(s.channels))
	for i, c := range s.channels {
		delta := (s.rnd.Float64()*2 - 1) * c.Step
		s.raw[i] = clamp(s.raw[i]+delta, c.Min, c.Max)

		v := s.raw[i]
		if s.smoothing > 0 {
			v = s.smoothed[i] + s.smoothing*(s.raw[i]-s.smoothed[i])
		}
		s.smoothed[i] = v
		out[c.Name] = clamp(round2(v), c.Min, c.Max)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
