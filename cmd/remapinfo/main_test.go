package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunGeometry(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"-size", "1000", "-rate", "48000"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Regexp(t, `window size\s+1024\n`, out)
	assert.Regexp(t, `hop size\s+256\n`, out)
	assert.Regexp(t, `latency\s+1024 samples \(21\.33 ms\)`, out)
	assert.Regexp(t, `identity gain\s+0\.00 dB`, out)
}

func TestRunShapeChangesIdentityGain(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"-size", "64", "-shape", "1"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Regexp(t, `identity gain\s+12\.04 dB`, stdout.String())
}

func TestRunTabulatesScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "octave.lua")
	require.NoError(t, os.WriteFile(path, []byte(`
frequency = frequency * 2
magnitude = magnitude * a`), 0o600))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-size", "64", "-rate", "8192", "-script", path,
		"-first", "15", "-bins", "3", "-macros", "0.5"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	table := lines[len(lines)-4:]

	assert.Contains(t, table[0], "target")
	assert.Regexp(t, `15\s+1920\.00\s+3840\.00\s+0\.500\s+30\.00`, table[1])
	assert.Regexp(t, `16\s+2048\.00\s+4096\.00\s+0\.500\s+dropped`, table[2])
	assert.Regexp(t, `17\s+2176\.00\s+4352\.00\s+0\.500\s+dropped`, table[3])
}

func TestRunRejectsBadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.lua")
	require.NoError(t, os.WriteFile(path, []byte("frequency = "), 0o600))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-size", "64", "-script", path}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "rejected")
	assert.Contains(t, stdout.String(), "compile error")
}

func TestRunFlagErrors(t *testing.T) {
	tests := [][]string{
		{"-shape", "2"},
		{"-macros", "1,2,3,4,5"},
		{"-macros", "x"},
		{"-bins", "-1"},
		{"-log-level", "loud"},
		{"-nope"},
	}

	for _, args := range tests {
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 2, run(args, &stdout, &stderr), "%v", args)
	}
}

func TestParseMacros(t *testing.T) {
	m, err := parseMacros("0.25, ,1.5")
	require.NoError(t, err)
	assert.Equal(t, [4]float64{0.25, 0, 1, 0}, m)
}

func TestRunTone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "octave.lua")
	require.NoError(t, os.WriteFile(path, []byte("frequency = frequency * 2"), 0o600))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-size", "512", "-rate", "48000", "-script", path, "-bins", "0", "-probe", "1500"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Regexp(t, `probe\s+1500\.00 Hz`, out)
	assert.Regexp(t, `dominant\s+3000\.00 Hz`, out)
	assert.Regexp(t, `gain\s+0\.00 dB`, out)
	assert.Regexp(t, `residual\s+(-inf|-[0-9]{3}\.[0-9]{2}) dB`, out)
}
