package gpu

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrSurfaceLost        = errors.New("surface lost")
	ErrSurfaceOutdated    = errors.New("surface outdated")
	ErrSurfaceTimeout     = errors.New("surface timeout")
	ErrSurfaceOutOfMemory = errors.New("surface out of memory")

	ErrReadbackNotReady = errors.New("readback not ready")
	ErrReadbackTimeout  = errors.New("readback timed out")

	ErrVolumeNotSeeded = errors.New("volume not seeded")
	ErrAlreadySeeded   = errors.New("volume already seeded")

	ErrContractMismatch = errors.New("pipeline contract mismatch")
	ErrNoAdapter        = errors.New("no suitable GPU adapter")
)

// classifySurfaceError maps an acquire failure reported by the driver onto
// the surface sentinels. Unrecognized errors are returned wrapped.
func classifySurfaceError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "outofmemory") || strings.Contains(msg, "out of memory"):
		return errors.Wrap(ErrSurfaceOutOfMemory, err.Error())
	case strings.Contains(msg, "lost"):
		return errors.Wrap(ErrSurfaceLost, err.Error())
	case strings.Contains(msg, "outdated"):
		return errors.Wrap(ErrSurfaceOutdated, err.Error())
	case strings.Contains(msg, "timeout"):
		return errors.Wrap(ErrSurfaceTimeout, err.Error())
	}
	return errors.Wrap(err, "acquire surface texture")
}

// IsSurfaceLost reports whether err should trigger a resize with the current
// dimensions. Outdated surfaces recover the same way.
func IsSurfaceLost(err error) bool {
	c := errors.Cause(err)
	return c == ErrSurfaceLost || c == ErrSurfaceOutdated
}

func IsOutOfMemory(err error) bool {
	return errors.Cause(err) == ErrSurfaceOutOfMemory
}
