package vokselis

import (
	"flag"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint32(1280), cfg.HdrWidth)
	assert.Equal(t, uint32(720), cfg.HdrHeight)
	assert.Equal(t, uint32(100), cfg.ProfileInterval)
	assert.Zero(t, cfg.PitchLimit)
	assert.Zero(t, cfg.TimestampPeriod, "the device period is used unless overridden")
}

func TestConfig_BindFlags(t *testing.T) {
	cfg := DefaultConfig()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg.BindFlags(fs)

	err := fs.Parse([]string{
		"-width", "800", "-height", "600",
		"-hdr", "640x360",
		"-profile-interval", "50",
		"-readback-timeout", "5ms",
		"-pitch-limit", "1.5",
		"-clear", "0.1, 0.2, 0.3, 1",
		"-headless", "-frames", "10",
	})
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 800, cfg.WindowWidth)
	assert.Equal(t, 600, cfg.WindowHeight)
	assert.Equal(t, uint32(640), cfg.HdrWidth)
	assert.Equal(t, uint32(360), cfg.HdrHeight)
	assert.Equal(t, uint32(50), cfg.ProfileInterval)
	assert.Equal(t, 5*time.Millisecond, cfg.ReadbackTimeout)
	assert.InDelta(t, 1.5, cfg.PitchLimit, 1e-6)
	assert.Equal(t, [4]float64{0.1, 0.2, 0.3, 1}, cfg.ClearColor)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 10, cfg.Frames)
}

func TestConfig_BindFlagsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad hdr", []string{"-hdr", "1280"}},
		{"bad hdr height", []string{"-hdr", "1280xabc"}},
		{"bad clear", []string{"-clear", "1,2,3"}},
		{"bad interval", []string{"-profile-interval", "-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			fs.SetOutput(io.Discard)
			cfg.BindFlags(fs)
			assert.Error(t, fs.Parse(tt.args))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero window width", func(c *Config) { c.WindowWidth = 0 }},
		{"zero hdr height", func(c *Config) { c.HdrHeight = 0 }},
		{"zero interval", func(c *Config) { c.ProfileInterval = 0 }},
		{"negative timeout", func(c *Config) { c.ReadbackTimeout = -time.Second }},
		{"negative period", func(c *Config) { c.TimestampPeriod = -1 }},
		{"negative pitch limit", func(c *Config) { c.PitchLimit = -0.1 }},
		{"negative frames", func(c *Config) { c.Frames = -1 }},
		{"headless without frames", func(c *Config) { c.Headless = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() = nil, want error")
			}
		})
	}
}
