package host

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-remap/dsp/remap"
)

func TestStateRoundTrip(t *testing.T) {
	src := newTestHost(t)
	src.Params().Get(ParamGain).SetPlain(0.5)
	src.Params().Get(ParamMacroC).SetPlain(0.3)
	src.Params().Get(ParamWindowOffset).SetPlain(17)
	src.Params().SetWindowSize(256)
	require.NoError(t, src.InstallMapping("magnitude = magnitude * c"))

	var blob bytes.Buffer
	require.NoError(t, src.SaveState(&blob))

	dst := newTestHost(t)
	require.NoError(t, dst.LoadState(&blob))

	for _, p := range src.Params().All() {
		assert.Equal(t, p.Value(), dst.Params().Get(p.ID).Value(), p.Name)
	}
	assert.Equal(t, 256, dst.Params().WindowSize())
	assert.Equal(t, "magnitude = magnitude * c", dst.Mapping().Source)
	assert.Equal(t, remap.Hash("magnitude = magnitude * c"), dst.Mapping().Hash)
}

func TestStateWithoutMapping(t *testing.T) {
	src := newTestHost(t)

	var blob bytes.Buffer
	require.NoError(t, src.SaveState(&blob))

	dst := newTestHost(t)
	require.NoError(t, dst.InstallMapping("magnitude = 0"))
	require.NoError(t, dst.LoadState(&blob))
	assert.Equal(t, remap.EmptyHash, dst.Mapping().Hash)
}

func TestLoadStateRejectsGarbage(t *testing.T) {
	h := newTestHost(t)

	assert.ErrorIs(t, h.LoadState(bytes.NewReader(nil)), ErrInvalidState)
	assert.ErrorIs(t, h.LoadState(bytes.NewReader([]byte("VST3GO\x01\x00\x00\x00"))), ErrInvalidState)

	var newer bytes.Buffer
	newer.WriteString(stateMagic)
	require.NoError(t, binary.Write(&newer, binary.LittleEndian, stateVersion+1))
	assert.ErrorIs(t, h.LoadState(&newer), ErrInvalidState)

	var huge bytes.Buffer
	huge.WriteString(stateMagic)
	require.NoError(t, binary.Write(&huge, binary.LittleEndian, stateVersion))
	require.NoError(t, binary.Write(&huge, binary.LittleEndian, uint32(0)))
	require.NoError(t, binary.Write(&huge, binary.LittleEndian, uint32(maxStateSource+1)))
	assert.ErrorIs(t, h.LoadState(&huge), ErrInvalidState)
}

func TestLoadStateSkipsUnknownParams(t *testing.T) {
	var blob bytes.Buffer
	blob.WriteString(stateMagic)
	require.NoError(t, binary.Write(&blob, binary.LittleEndian, stateVersion))
	require.NoError(t, binary.Write(&blob, binary.LittleEndian, uint32(2)))
	require.NoError(t, binary.Write(&blob, binary.LittleEndian, uint32(99)))
	require.NoError(t, binary.Write(&blob, binary.LittleEndian, 0.7))
	require.NoError(t, binary.Write(&blob, binary.LittleEndian, uint32(ParamMacroB)))
	require.NoError(t, binary.Write(&blob, binary.LittleEndian, 0.7))
	require.NoError(t, binary.Write(&blob, binary.LittleEndian, uint32(0)))

	h := newTestHost(t)
	require.NoError(t, h.LoadState(&blob))
	assert.InDelta(t, 0.7, h.Params().Get(ParamMacroB).Plain(), 1e-12)
}
