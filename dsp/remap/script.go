package remap

import (
	lua "github.com/yuin/gopher-lua"
)

// Script is a compiled mapping bound to its own Lua state.
//
// A Script is not safe for concurrent use; each engine owns its own.
// Globals the script defines survive between calls.
type Script struct {
	state *lua.LState
	fn    *lua.LFunction
	hash  uint64
}

var scriptLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.LoadLibName, lua.OpenPackage},
	{lua.BaseLibName, lua.OpenBase},
	{lua.MathLibName, lua.OpenMath},
	{lua.StringLibName, lua.OpenString},
	{lua.TabLibName, lua.OpenTable},
}

func newScript(proto *lua.FunctionProto, hash uint64) *Script {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range scriptLibs {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	// Mappings are pure functions of their inputs; no file access.
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	return &Script{
		state: L,
		fn:    L.NewFunctionFromProto(proto),
		hash:  hash,
	}
}

// Hash returns the content hash of the source the script was compiled from.
func (s *Script) Hash() uint64 { return s.hash }

// Map runs the script once. Lua errors are returned as *RuntimeError.
func (s *Script) Map(p *Params, frequency, magnitude float64) (float64, float64, error) {
	L := s.state

	L.SetGlobal("a", lua.LNumber(p.Macros[0]))
	L.SetGlobal("b", lua.LNumber(p.Macros[1]))
	L.SetGlobal("c", lua.LNumber(p.Macros[2]))
	L.SetGlobal("d", lua.LNumber(p.Macros[3]))
	L.SetGlobal("sound_channel_id", lua.LNumber(p.Channel))
	L.SetGlobal("bpm", lua.LNumber(p.Tempo))
	L.SetGlobal("daw_time", lua.LNumber(p.TransportTime))
	L.SetGlobal("sys_time", lua.LNumber(p.SystemTime))
	L.SetGlobal("window_size", lua.LNumber(p.WindowSize))
	L.SetGlobal("sample_rate", lua.LNumber(p.SampleRate))
	L.SetGlobal("frequency", lua.LNumber(frequency))
	L.SetGlobal("magnitude", lua.LNumber(magnitude))

	L.Push(s.fn)
	if err := L.PCall(0, 0, nil); err != nil {
		L.SetTop(0)
		return frequency, magnitude, &RuntimeError{Diagnostic: err.Error(), Err: err}
	}

	if v, ok := L.GetGlobal("frequency").(lua.LNumber); ok {
		frequency = float64(v)
	}
	if v, ok := L.GetGlobal("magnitude").(lua.LNumber); ok {
		magnitude = float64(v)
	}

	return frequency, magnitude, nil
}

// Close releases the Lua state.
func (s *Script) Close() {
	s.state.Close()
}
