package vfx

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
)

// Compiler turns WGSL effect source into SPIR-V words. Compile is
// called from worker goroutines and must be safe for concurrent use.
type Compiler interface {
	Compile(source string) ([]uint32, error)
}

// NagaCompiler is the default Compiler, backed by the naga toolchain.
type NagaCompiler struct{}

// Compile compiles WGSL to SPIR-V.
func (NagaCompiler) Compile(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	return spirvWords(spirvBytes), nil
}

// spirvWords converts SPIR-V bytes to little-endian 32-bit words.
func spirvWords(b []byte) []uint32 {
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words
}

// effectHeaderWGSL is the shared prelude compiled in front of every
// effect: uniform blocks, the shared sampler, the noise texture, helper
// functions and the fullscreen vertex stage.
//
//go:embed effects/header.wgsl
var effectHeaderWGSL string

// Bindings generated per effect. Group 0 holds per-node state written
// during update; group 1 holds per-chain state written during paint.
// Input textures sit in group 1 after the paint uniforms and noise.
const paintInputBinding = 2

// effectPreamble returns the WGSL prelude for an effect with the given
// number of input ports: the shared header plus one texture declaration
// per port.
func effectPreamble(inputs int) string {
	var b strings.Builder
	b.WriteString(effectHeaderWGSL)
	b.WriteString("\n")
	for i := range inputs {
		fmt.Fprintf(&b, "@group(1) @binding(%d) var iInput%d: texture_2d<f32>;\n",
			paintInputBinding+i, i)
	}
	b.WriteString("\n")
	return b.String()
}
