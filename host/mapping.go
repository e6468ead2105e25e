package host

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cwbudde/algo-remap/dsp/pvoc"
	"github.com/cwbudde/algo-remap/dsp/remap"
)

// DefaultMappingFile is the file name LoadMappingFile looks for in the
// user's Documents directory.
const DefaultMappingFile = "mapper.lua"

// MappingState is what the host shows the user about the mapping text.
type MappingState struct {
	// Source is the text most recently submitted, installed or not.
	Source string
	// Path is the file Source was loaded from, if any.
	Path string
	// Err is the reason Source is not running; nil once installed.
	Err error
	// LoadedAt is when Source was submitted.
	LoadedAt time.Time
	// Hash identifies the running mapping; remap.EmptyHash for identity.
	Hash uint64
}

// Installed reports whether Source is the running mapping.
func (m MappingState) Installed() bool {
	return m.Err == nil && m.Source != ""
}

// Mapping returns a snapshot of the mapping state.
func (h *Host) Mapping() MappingState {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.mapping
}

// InstallMapping compiles src and installs it on every engine. Empty text
// restores the identity mapping. On failure the running mapping is kept
// and the error is recorded in the mapping state.
func (h *Host) InstallMapping(src string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.mapping.Path = ""

	return h.installLocked(src)
}

// ClearMapping restores the identity mapping on every engine.
func (h *Host) ClearMapping() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range h.engines {
		e.ClearMapping()
	}

	h.running = ""
	h.mapping = MappingState{LoadedAt: h.clock(), Hash: remap.EmptyHash}
	h.logger.Info("mapping cleared")
}

// LoadMappingFile reads a mapping from path and installs it. An empty path
// selects DefaultMappingPath.
func (h *Host) LoadMappingFile(path string) error {
	if path == "" {
		p, err := DefaultMappingPath()
		if err != nil {
			return err
		}
		path = p
	}

	data, err := os.ReadFile(path)

	h.mu.Lock()
	defer h.mu.Unlock()

	if err != nil {
		err = fmt.Errorf("host: load mapping: %w", err)
		h.mapping.Path = path
		h.mapping.Err = err
		h.mapping.LoadedAt = h.clock()
		h.logger.Warn("mapping file unreadable", "path", path, "error", err)

		return err
	}

	h.mapping.Path = path

	return h.installLocked(string(data))
}

// DefaultMappingPath returns Documents/mapper.lua under the user's home.
func DefaultMappingPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("host: locate home directory: %w", err)
	}

	return filepath.Join(home, "Documents", DefaultMappingFile), nil
}

func (h *Host) installLocked(src string) error {
	h.mapping.Source = src
	h.mapping.LoadedAt = h.clock()

	for i, e := range h.engines {
		if err := e.InstallMapping(src); err != nil {
			// Engines before i already run src; put them back.
			h.rollback(h.engines[:i])

			h.mapping.Err = err
			h.mapping.Hash = h.engines[0].MappingHash()
			h.logger.Warn("mapping rejected", "engine", i, "error", err)

			return err
		}
	}

	h.running = src
	h.mapping.Err = nil
	h.mapping.Hash = h.engines[0].MappingHash()

	if src == "" {
		h.logger.Info("mapping cleared")
	} else {
		h.logger.Info("mapping installed",
			"hash", fmt.Sprintf("%016x", h.mapping.Hash),
			"bytes", len(src),
			"path", h.mapping.Path)
	}

	return nil
}

// rollback reinstalls the running mapping on engines. A failure leaves that
// engine on whatever it ran before and is only logged.
func (h *Host) rollback(engines []*pvoc.Vocoder) {
	for i, e := range engines {
		if err := e.InstallMapping(h.running); err != nil {
			h.logger.Error("mapping rollback failed", "engine", i, "error", err)
		}
	}
}
