package core

import (
	"errors"
)

var (
	// ErrAssetNotFound is returned when an asset cannot be resolved against
	// any of the configured search paths.
	ErrAssetNotFound = errors.New("asset not found in search paths")
	// ErrAlreadyBuilt is returned when a single-shot acceleration structure
	// builder is asked to build a second time. Rebuilding a BLAS after a TLAS
	// references it would invalidate the TLAS, so a full rebuild with a fresh
	// builder is required instead.
	ErrAlreadyBuilt = errors.New("acceleration structure already built")
	// ErrNotBuilt is returned when a device address is requested from a
	// structure whose build has not completed.
	ErrNotBuilt = errors.New("acceleration structure not built yet")
	ErrUnknown  = errors.New("unknown")
)
