package host

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	stateMagic   = "ALGRMP"
	stateVersion = uint32(1)

	// maxStateSource bounds the mapping text accepted from a state blob.
	maxStateSource = 1 << 20
)

// ErrInvalidState is returned when a state blob cannot be decoded.
var ErrInvalidState = errors.New("host: invalid state")

// SaveState writes parameter values and the mapping text to w.
//
// Layout (little endian): magic, version, parameter count, then
// (id uint32, normalized float64) pairs, then the mapping text as a
// uint32 length followed by its bytes.
func (h *Host) SaveState(w io.Writer) error {
	h.mu.Lock()
	src := h.mapping.Source
	h.mu.Unlock()

	if _, err := io.WriteString(w, stateMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, stateVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(h.params.Count())); err != nil {
		return err
	}

	for _, p := range h.params.All() {
		if err := binary.Write(w, binary.LittleEndian, uint32(p.ID)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, p.Value()); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(src))); err != nil {
		return err
	}
	_, err := io.WriteString(w, src)

	return err
}

// LoadState restores a blob written by SaveState. Unknown parameter IDs are
// skipped. The mapping text is reinstalled; if it no longer compiles the
// parameters stay restored and the install error is returned.
func (h *Host) LoadState(r io.Reader) error {
	header := make([]byte, len(stateMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if string(header) != stateMagic {
		return fmt.Errorf("%w: bad magic %q", ErrInvalidState, header)
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if version > stateVersion {
		return fmt.Errorf("%w: version %d is newer than %d", ErrInvalidState, version, stateVersion)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}

	values := make(map[ParamID]float64, count)
	for range count {
		var (
			id    uint32
			value float64
		)
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &value); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
		values[ParamID(id)] = value
	}

	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	if n > maxStateSource {
		return fmt.Errorf("%w: mapping text of %d bytes", ErrInvalidState, n)
	}

	src := make([]byte, n)
	if _, err := io.ReadFull(r, src); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidState, err)
	}

	for id, value := range values {
		if p := h.params.Get(id); p != nil {
			p.SetValue(value)
		}
	}

	return h.InstallMapping(string(src))
}
