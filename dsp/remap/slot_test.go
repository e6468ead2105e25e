package remap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSlotIsIdentity(t *testing.T) {
	s := NewSlot(nil)
	defer s.Close()

	assert.False(t, s.Active())
	assert.Equal(t, EmptyHash, s.Hash())

	f, m, err := s.Map(&Params{}, 440, 0.25)
	require.NoError(t, err)
	assert.Equal(t, 440.0, f)
	assert.Equal(t, 0.25, m)
}

func TestInstallAndMap(t *testing.T) {
	s := NewSlot(nil)
	defer s.Close()

	src := "frequency = frequency * 2\nmagnitude = magnitude * a"
	require.NoError(t, s.Install(src))
	assert.True(t, s.Active())
	assert.Equal(t, Hash(src), s.Hash())

	p := &Params{Macros: [4]float64{0.5, 0, 0, 0}}
	f, m, err := s.Map(p, 100, 2)
	require.NoError(t, err)
	assert.InDelta(t, 200, f, 1e-12)
	assert.InDelta(t, 1, m, 1e-12)
}

func TestScriptSeesAllInputs(t *testing.T) {
	s := NewSlot(nil)
	defer s.Close()

	require.NoError(t, s.Install(`
frequency = a + 10*b + 100*c + 1000*d
magnitude = sound_channel_id + bpm + daw_time + sys_time + window_size + sample_rate
`))

	p := &Params{
		Macros:        [4]float64{1, 2, 3, 4},
		Channel:       1,
		Tempo:         120,
		TransportTime: 2,
		SystemTime:    3,
		WindowSize:    1024,
		SampleRate:    48000,
	}
	f, m, err := s.Map(p, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 4321, f, 1e-9)
	assert.InDelta(t, 1+120+2+3+1024+48000, m, 1e-9)
}

func TestUnboundOutputsKeepInput(t *testing.T) {
	s := NewSlot(nil)
	defer s.Close()

	require.NoError(t, s.Install(`magnitude = "loud"; local unused = 1`))

	f, m, err := s.Map(&Params{}, 330, 0.75)
	require.NoError(t, err)
	assert.Equal(t, 330.0, f)
	assert.Equal(t, 0.75, m)
}

func TestInstallEmptyClears(t *testing.T) {
	s := NewSlot(nil)
	defer s.Close()

	require.NoError(t, s.Install("frequency = 0"))
	require.True(t, s.Active())

	require.NoError(t, s.Install(""))
	assert.False(t, s.Active())
	assert.Equal(t, EmptyHash, s.Hash())

	f, _, err := s.Map(&Params{}, 99, 1)
	require.NoError(t, err)
	assert.Equal(t, 99.0, f)
}

func TestInstallSameSourceIsNoop(t *testing.T) {
	c := NewCompiler(4)
	s := NewSlot(c)
	defer s.Close()

	src := "frequency = frequency + 1"
	require.NoError(t, s.Install(src))
	first := s.script

	require.NoError(t, s.Install(src))
	assert.Same(t, first, s.script, "unchanged source must not be recompiled")
}

func TestCompileErrorKeepsPrevious(t *testing.T) {
	s := NewSlot(nil)
	defer s.Close()

	require.NoError(t, s.Install("frequency = frequency * 3"))
	before := s.Hash()

	err := s.Install("frequency = = 2")
	require.Error(t, err)

	var ce *CompileError
	require.True(t, errors.As(err, &ce), "want *CompileError, got %T", err)
	assert.NotEmpty(t, ce.Diagnostic)
	assert.Equal(t, before, s.Hash())

	f, _, err := s.Map(&Params{}, 10, 1)
	require.NoError(t, err)
	assert.InDelta(t, 30, f, 1e-12)
}

func TestValidationFailureRollsBack(t *testing.T) {
	tests := []struct {
		name     string
		previous string
	}{
		{name: "from identity", previous: ""},
		{name: "from script", previous: "frequency = frequency / 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSlot(nil)
			defer s.Close()

			require.NoError(t, s.Install(tt.previous))
			hashBefore, activeBefore := s.Hash(), s.Active()
			fBefore, _, err := s.Map(&Params{}, 100, 1)
			require.NoError(t, err)

			err = s.Install(`error("rejected")`)
			var re *RuntimeError
			require.True(t, errors.As(err, &re), "want *RuntimeError, got %T", err)
			assert.Contains(t, re.Diagnostic, "rejected")

			assert.Equal(t, hashBefore, s.Hash())
			assert.Equal(t, activeBefore, s.Active())

			fAfter, _, err := s.Map(&Params{}, 100, 1)
			require.NoError(t, err)
			assert.Equal(t, fBefore, fAfter)
		})
	}
}

func TestValidationUsesNeutralInput(t *testing.T) {
	s := NewSlot(nil)
	defer s.Close()

	// Faults only away from the neutral input, so it passes validation.
	require.NoError(t, s.Install(`if frequency > 1000 then error("too high") end`))

	_, _, err := s.Map(&Params{}, 500, 1)
	require.NoError(t, err)

	_, _, err = s.Map(&Params{}, 2000, 1)
	var re *RuntimeError
	require.ErrorAs(t, err, &re)
}

func TestClearAfterInstallAllowsReinstall(t *testing.T) {
	s := NewSlot(nil)
	defer s.Close()

	src := "frequency = 1"
	require.NoError(t, s.Install(src))
	s.Clear()
	assert.False(t, s.Active())

	require.NoError(t, s.Install(src))
	assert.True(t, s.Active())
}

func TestScriptHasNoFileAccess(t *testing.T) {
	s := NewSlot(nil)
	defer s.Close()

	err := s.Install(`dofile("/etc/passwd")`)
	var re *RuntimeError
	require.ErrorAs(t, err, &re)
	assert.False(t, s.Active())
}

func TestMathLibraryAvailable(t *testing.T) {
	s := NewSlot(nil)
	defer s.Close()

	require.NoError(t, s.Install(`magnitude = magnitude * math.random(); frequency = math.floor(frequency)`))

	f, m, err := s.Map(&Params{}, 123.75, 1)
	require.NoError(t, err)
	assert.Equal(t, 123.0, f)
	assert.GreaterOrEqual(t, m, 0.0)
	assert.Less(t, m, 1.0)
}
