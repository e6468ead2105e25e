package remap

// Slot holds the active mapping of one engine.
//
// The zero Slot is not usable; create one with NewSlot. A Slot is not safe
// for concurrent use: callers serialise Install against Map.
type Slot struct {
	compiler *Compiler
	mapper   Mapper
	script   *Script
	hash     uint64
}

var neutralParams Params

// NewSlot returns a slot running the identity mapping. A nil compiler
// gets a private one.
func NewSlot(compiler *Compiler) *Slot {
	if compiler == nil {
		compiler = NewCompiler(0)
	}

	return &Slot{
		compiler: compiler,
		mapper:   Identity{},
		hash:     EmptyHash,
	}
}

// Hash returns the content hash of the installed source.
func (s *Slot) Hash() uint64 { return s.hash }

// Active reports whether a compiled mapping is installed.
func (s *Slot) Active() bool { return s.script != nil }

// Map applies the active mapping.
func (s *Slot) Map(p *Params, frequency, magnitude float64) (float64, float64, error) {
	return s.mapper.Map(p, frequency, magnitude)
}

// Install compiles and validates src and makes it the active mapping.
//
// Empty src clears the mapping. Source whose hash matches the installed
// one is not recompiled. On *CompileError the slot is unchanged; on
// *RuntimeError from the validation call the previous mapping is restored
// and the hash is left as it was.
func (s *Slot) Install(src string) error {
	if src == "" {
		s.Clear()
		return nil
	}

	h := Hash(src)
	if h == s.hash {
		return nil
	}

	script, err := s.compiler.Compile(src)
	if err != nil {
		return err
	}

	prevMapper, prevScript := s.mapper, s.script
	s.mapper, s.script = script, script

	if _, _, err := s.Map(&neutralParams, 0, 0); err != nil {
		s.mapper, s.script = prevMapper, prevScript
		script.Close()

		return err
	}

	if prevScript != nil {
		prevScript.Close()
	}

	s.hash = h

	return nil
}

// Clear restores the identity mapping.
func (s *Slot) Clear() {
	if s.script != nil {
		s.script.Close()
	}

	s.mapper = Identity{}
	s.script = nil
	s.hash = EmptyHash
}

// Close releases the installed script, if any.
func (s *Slot) Close() {
	s.Clear()
}
