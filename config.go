package vokselis

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Config holds every tunable of the renderer. Zero values are not usable;
// start from DefaultConfig.
type Config struct {
	Title        string
	WindowWidth  int
	WindowHeight int

	// HdrWidth and HdrHeight size the offscreen HDR target. They are read once
	// at startup and never follow the window.
	HdrWidth  uint32
	HdrHeight uint32

	ProfileInterval uint32
	ReadbackTimeout time.Duration
	// TimestampPeriod overrides the GPU timer period in nanoseconds per tick.
	// Zero uses the period the queue reports.
	TimestampPeriod float64

	RotateSpeed float32
	ZoomSpeed   float32
	// PitchLimit clamps |pitch| in radians. 0 disables clamping.
	PitchLimit float32

	ClearColor [4]float64

	Debug    bool
	Headless bool
	Frames   int
	HUD      bool
}

func DefaultConfig() Config {
	return Config{
		Title:           "Vokselis",
		WindowWidth:     1280,
		WindowHeight:    720,
		HdrWidth:        1280,
		HdrHeight:       720,
		ProfileInterval: 100,
		ReadbackTimeout: 2 * time.Millisecond,
		RotateSpeed:     0.0025,
		ZoomSpeed:       0.002,
		ClearColor:      [4]float64{0, 0, 0, 1},
		HUD:             true,
	}
}

// BindFlags registers the config fields on fs. Values already in c act as
// the flag defaults.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Title, "title", c.Title, "Window title")
	fs.IntVar(&c.WindowWidth, "width", c.WindowWidth, "Initial window width")
	fs.IntVar(&c.WindowHeight, "height", c.WindowHeight, "Initial window height")
	fs.Func("hdr", fmt.Sprintf("HDR target size as WxH (default %dx%d)", c.HdrWidth, c.HdrHeight), func(s string) error {
		w, h, err := parseSize(s)
		if err != nil {
			return err
		}
		c.HdrWidth, c.HdrHeight = w, h
		return nil
	})
	fs.Func("profile-interval", fmt.Sprintf("Frames between timestamp readbacks (default %d)", c.ProfileInterval), func(s string) error {
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return errors.Wrap(err, "profile-interval")
		}
		c.ProfileInterval = uint32(v)
		return nil
	})
	fs.DurationVar(&c.ReadbackTimeout, "readback-timeout", c.ReadbackTimeout, "Upper bound on the timestamp readback wait")
	fs.Float64Var(&c.TimestampPeriod, "timestamp-period", c.TimestampPeriod, "GPU timestamp period in ns per tick (0 uses the device period)")
	fs.Func("pitch-limit", "Clamp camera pitch to +/- this many radians (0 disables)", func(s string) error {
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return errors.Wrap(err, "pitch-limit")
		}
		c.PitchLimit = float32(v)
		return nil
	})
	fs.Func("clear", "Background color as r,g,b,a", func(s string) error {
		parts := strings.Split(s, ",")
		if len(parts) != 4 {
			return errors.Errorf("clear color %q: want 4 components", s)
		}
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return errors.Wrapf(err, "clear color component %d", i)
			}
			c.ClearColor[i] = v
		}
		return nil
	})
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Enable debug logging and the HDR probe")
	fs.BoolVar(&c.Headless, "headless", c.Headless, "Render to an offscreen surface without a window")
	fs.IntVar(&c.Frames, "frames", c.Frames, "Stop after this many frames (0 runs until closed)")
	fs.BoolVar(&c.HUD, "hud", c.HUD, "Draw the stats overlay")
}

func (c Config) Validate() error {
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return errors.Errorf("window size %dx%d must be positive", c.WindowWidth, c.WindowHeight)
	}
	if c.HdrWidth == 0 || c.HdrHeight == 0 {
		return errors.Errorf("hdr size %dx%d must be positive", c.HdrWidth, c.HdrHeight)
	}
	if c.ProfileInterval == 0 {
		return errors.New("profile interval must be positive")
	}
	if c.ReadbackTimeout < 0 {
		return errors.Errorf("readback timeout %s is negative", c.ReadbackTimeout)
	}
	if c.TimestampPeriod < 0 {
		return errors.Errorf("timestamp period %g is negative", c.TimestampPeriod)
	}
	if c.PitchLimit < 0 {
		return errors.Errorf("pitch limit %g is negative", c.PitchLimit)
	}
	if c.Frames < 0 {
		return errors.Errorf("frame count %d is negative", c.Frames)
	}
	if c.Headless && c.Frames == 0 {
		return errors.New("headless mode needs -frames")
	}
	return nil
}

func parseSize(s string) (uint32, uint32, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, errors.Errorf("size %q: want WxH", s)
	}
	w, err := strconv.ParseUint(ws, 10, 32)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "size %q width", s)
	}
	h, err := strconv.ParseUint(hs, 10, 32)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "size %q height", s)
	}
	return uint32(w), uint32(h), nil
}
