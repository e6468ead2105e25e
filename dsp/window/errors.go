package window

import (
	"errors"
	"fmt"
)

var errInvalidHop = errors.New("window: hop must divide the window size")

func validateLength(size int) error {
	if size <= 0 {
		return fmt.Errorf("window: size must be > 0: %d", size)
	}
	return nil
}

func validateShape(shape float64) error {
	if shape < 0 || shape > 1 {
		return fmt.Errorf("window: shape must be in [0,1]: %f", shape)
	}
	return nil
}
