package glcompute

import (
	"embed"
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.3-core/gl"

	"perlin-terrain/internal/compute"
)

//go:embed shaders/*.comp shaders/*.glsl
var shaderFS embed.FS

const includeDirective = `#include "common.glsl"`

var kernelSources = map[compute.Kernel]string{
	compute.KernelGradientFill:   "shaders/gradient_fill.comp",
	compute.KernelVertexEvaluate: "shaders/vertex_evaluate.comp",
}

// program is a linked compute program with its uniform locations cached by name.
type program struct {
	id       uint32
	uniforms map[string]int32
}

func (p *program) location(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.uniforms[name] = loc
	return loc
}

func (p *program) setUint(name string, v uint32) {
	gl.Uniform1ui(p.location(name), v)
}

func (p *program) setFloat(name string, v float32) {
	gl.Uniform1f(p.location(name), v)
}

// kernelSource returns the GLSL for k with the shared helpers spliced in.
func kernelSource(k compute.Kernel) (string, error) {
	path, ok := kernelSources[k]
	if !ok {
		return "", fmt.Errorf("no shader for kernel %s", k)
	}
	src, err := shaderFS.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("could not read compute shader %s: %w", path, err)
	}
	common, err := shaderFS.ReadFile("shaders/common.glsl")
	if err != nil {
		return "", fmt.Errorf("could not read shader helpers: %w", err)
	}
	return strings.Replace(string(src), includeDirective, string(common), 1), nil
}

func compileKernel(k compute.Kernel) (*program, error) {
	src, err := kernelSource(k)
	if err != nil {
		return nil, err
	}
	shader, err := compileShader(src, gl.COMPUTE_SHADER)
	if err != nil {
		return nil, fmt.Errorf("kernel %s: %w", k, err)
	}

	id := gl.CreateProgram()
	gl.AttachShader(id, shader)
	gl.LinkProgram(id)
	gl.DeleteShader(shader)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(id, logLength, nil, gl.Str(log))
		gl.DeleteProgram(id)

		return nil, fmt.Errorf("failed to link kernel %s: %v", k, log)
	}
	return &program{id: id, uniforms: make(map[string]int32)}, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		return 0, fmt.Errorf("failed to compile shader: %v", log)
	}
	return shader, nil
}
