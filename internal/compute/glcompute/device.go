// Package glcompute implements compute.Device with OpenGL 4.3 compute shaders.
//
// GL contexts are bound to one OS thread. Every Device method must be called from the
// goroutine that made the context current; the driver's command stream is the queue.
package glcompute

import (
	"context"
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"perlin-terrain/internal/compute"
	"perlin-terrain/internal/noise"
	"perlin-terrain/internal/profiling"
)

// workgroup matches local_size_x/y in the kernels.
const workgroup = 8

const floatSize = int(unsafe.Sizeof(float32(0)))

type buffer struct {
	dev    *Device
	id     uint32
	label  string
	usage  compute.BufferUsage
	length int
}

func (b *buffer) Label() string { return b.label }

func (b *buffer) Len() int { return b.length }

func (b *buffer) Usage() compute.BufferUsage { return b.usage }

// BufferID returns the GL name of a buffer created by a glcompute device, for binding
// it outside the compute path (the viewer reads heights straight from the SSBO).
func BufferID(buf compute.Buffer) (uint32, bool) {
	b, ok := buf.(*buffer)
	if !ok || b.id == 0 {
		return 0, false
	}
	return b.id, true
}

// Device runs kernels on the GL context current on the calling thread.
type Device struct {
	logger   *slog.Logger
	renderer string
	programs map[compute.Kernel]*program
	faults   uint32 // SSBO holding the out-of-bounds counter
	window   *glfw.Window
	closed   bool
}

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) { d.logger = l }
}

// NewHeadless creates a hidden 1x1 window for a private 4.3 core context and builds a device on it.
// glfw requires this to run on the main thread.
func NewHeadless(opts ...Option) (*Device, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("%w: glfw init: %v", compute.ErrDeviceUnavailable, err)
	}
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(1, 1, "perlin-terrain compute", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("%w: no OpenGL 4.3 context: %v", compute.ErrDeviceUnavailable, err)
	}
	window.MakeContextCurrent()

	d, err := New(opts...)
	if err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, err
	}
	d.window = window
	return d, nil
}

// New builds a device on the GL context that is current on the calling thread.
func New(opts ...Option) (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("%w: gl init: %v", compute.ErrDeviceUnavailable, err)
	}
	d := &Device{
		logger:   slog.Default(),
		renderer: gl.GoStr(gl.GetString(gl.RENDERER)),
		programs: make(map[compute.Kernel]*program, len(kernelSources)),
	}
	for _, o := range opts {
		o(d)
	}

	for k := range kernelSources {
		p, err := compileKernel(k)
		if err != nil {
			d.deletePrograms()
			return nil, fmt.Errorf("%w: %v", compute.ErrDeviceUnavailable, err)
		}
		d.programs[k] = p
	}

	gl.GenBuffers(1, &d.faults)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, d.faults)
	var zero uint32
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, 4, gl.Ptr(&zero), gl.DYNAMIC_READ)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)

	if err := glError("device setup"); err != nil {
		d.deletePrograms()
		return nil, err
	}
	d.logger.Info("gl compute device ready",
		"renderer", d.renderer,
		"version", gl.GoStr(gl.GetString(gl.VERSION)))
	return d, nil
}

// Name implements compute.Device.
func (d *Device) Name() string {
	return "gl(" + d.renderer + ")"
}

// NewBuffer implements compute.Device.
func (d *Device) NewBuffer(label string, length int, usage compute.BufferUsage) (compute.Buffer, error) {
	if d.closed {
		return nil, fmt.Errorf("%w: device closed", compute.ErrDeviceUnavailable)
	}
	if length < 0 {
		return nil, fmt.Errorf("%w: buffer %q with negative length %d", compute.ErrDeviceUnavailable, label, length)
	}
	b := &buffer{dev: d, label: label, usage: usage, length: length}
	hint := uint32(gl.DYNAMIC_COPY)
	if usage == compute.UsageReadback {
		hint = gl.STREAM_READ
	}

	gl.GenBuffers(1, &b.id)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.id)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, max(length, 1)*floatSize, nil, hint)
	if length > 0 {
		gl.ClearBufferData(gl.SHADER_STORAGE_BUFFER, gl.R32F, gl.RED, gl.FLOAT, nil)
	}
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)

	if err := glError("allocate " + label); err != nil {
		gl.DeleteBuffers(1, &b.id)
		return nil, err
	}
	return b, nil
}

func (d *Device) own(buf compute.Buffer) (*buffer, error) {
	b, ok := buf.(*buffer)
	if !ok || b.dev != d || b.id == 0 {
		name := "<nil>"
		if buf != nil {
			name = buf.Label()
		}
		return nil, fmt.Errorf("%w: %q", compute.ErrForeignBuffer, name)
	}
	return b, nil
}

// Submit implements compute.Device. Commands are recorded into the GL stream and
// run asynchronously; a storage barrier after every op keeps them ordered.
func (d *Device) Submit(batch *compute.Batch) error {
	if d.closed {
		return fmt.Errorf("%w: device closed", compute.ErrDeviceUnavailable)
	}
	if err := batch.Validate(); err != nil {
		return err
	}
	d.logger.Debug("gl batch", "label", batch.Label, "ops", len(batch.Ops))

	for i, op := range batch.Ops {
		var err error
		switch op.Kind {
		case compute.OpClear:
			err = d.clear(op.Target)
		case compute.OpCopy:
			err = d.copy(op.Src, op.Dst)
		case compute.OpDispatch:
			err = d.dispatch(op.Dispatch)
		}
		if err != nil {
			return fmt.Errorf("batch %q op %d: %w", batch.Label, i, err)
		}
		gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT | gl.BUFFER_UPDATE_BARRIER_BIT)
	}
	return glError("submit " + batch.Label)
}

func (d *Device) clear(buf compute.Buffer) error {
	b, err := d.own(buf)
	if err != nil {
		return err
	}
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.id)
	gl.ClearBufferData(gl.SHADER_STORAGE_BUFFER, gl.R32F, gl.RED, gl.FLOAT, nil)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	return nil
}

func (d *Device) copy(srcBuf, dstBuf compute.Buffer) error {
	src, err := d.own(srcBuf)
	if err != nil {
		return err
	}
	dst, err := d.own(dstBuf)
	if err != nil {
		return err
	}
	gl.BindBuffer(gl.COPY_READ_BUFFER, src.id)
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, dst.id)
	gl.CopyBufferSubData(gl.COPY_READ_BUFFER, gl.COPY_WRITE_BUFFER, 0, 0, src.length*floatSize)
	gl.BindBuffer(gl.COPY_READ_BUFFER, 0)
	gl.BindBuffer(gl.COPY_WRITE_BUFFER, 0)
	return nil
}

func (d *Device) dispatch(disp compute.Dispatch) error {
	defer profiling.Track("gl." + disp.Kernel.String())()

	grads, err := d.own(disp.Gradients)
	if err != nil {
		return err
	}
	p := d.programs[disp.Kernel]
	params := disp.Params
	gl.UseProgram(p.id)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 0, grads.id)

	switch disp.Kernel {
	case compute.KernelGradientFill:
		p.setUint("latticeColumns", params.LatticeColumns)
		p.setUint("latticeRows", params.LatticeRows)
		p.setUint("seed", params.Seed)
	case compute.KernelVertexEvaluate:
		heights, err := d.own(disp.Heights)
		if err != nil {
			return err
		}
		gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 1, heights.id)
		gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 2, d.faults)
		p.setUint("vertexColumns", params.VertexColumns)
		p.setUint("vertexRows", params.VertexRows)
		p.setFloat("triangleSide", params.TriangleSide)
		p.setUint("latticeColumns", params.LatticeColumns)
		p.setUint("latticeRows", params.LatticeRows)
		p.setFloat("cellSide", params.CellSide)
		p.setFloat("amplitude", params.Amplitude)
	}

	gl.DispatchCompute(groups(disp.Width), groups(disp.Height), 1)
	gl.UseProgram(0)
	return nil
}

func groups(n uint32) uint32 {
	return (n + workgroup - 1) / workgroup
}

// Wait implements compute.Device. It blocks on the driver and drains the fault counter.
func (d *Device) Wait(ctx context.Context) error {
	if d.closed {
		return fmt.Errorf("%w: device closed", compute.ErrDeviceUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	gl.MemoryBarrier(gl.BUFFER_UPDATE_BARRIER_BIT)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, d.faults)
	var faults uint32
	gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, 4, gl.Ptr(&faults))
	if faults > 0 {
		var zero uint32
		gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, 0, 4, gl.Ptr(&zero))
	}
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)

	if err := glError("wait"); err != nil {
		return err
	}
	if faults > 0 {
		return fmt.Errorf("%w: %d vertices had no enclosing lattice cell", noise.ErrOutOfBoundsLattice, faults)
	}
	return nil
}

// Read implements compute.Device.
func (d *Device) Read(ctx context.Context, buf compute.Buffer, dst []float32) error {
	b, err := d.own(buf)
	if err != nil {
		return err
	}
	if b.usage&compute.UsageReadback == 0 {
		return fmt.Errorf("%w: buffer %q is not a readback buffer", compute.ErrReadback, b.label)
	}
	if len(dst) < b.length {
		return fmt.Errorf("%w: destination holds %d floats, buffer %q has %d",
			compute.ErrReadback, len(dst), b.label, b.length)
	}
	if err := d.Wait(ctx); err != nil {
		return err
	}
	if b.length == 0 {
		return nil
	}
	gl.BindBuffer(gl.COPY_READ_BUFFER, b.id)
	gl.GetBufferSubData(gl.COPY_READ_BUFFER, 0, b.length*floatSize, gl.Ptr(&dst[0]))
	gl.BindBuffer(gl.COPY_READ_BUFFER, 0)
	if err := glError("read " + b.label); err != nil {
		return fmt.Errorf("%w: %v", compute.ErrReadback, err)
	}
	return nil
}

// Release implements compute.Device.
func (d *Device) Release(buf compute.Buffer) {
	b, err := d.own(buf)
	if err != nil {
		return
	}
	gl.DeleteBuffers(1, &b.id)
	b.id = 0
}

// Close deletes the kernels and, for a headless device, its context.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.deletePrograms()
	gl.DeleteBuffers(1, &d.faults)
	if d.window != nil {
		d.window.Destroy()
		glfw.Terminate()
	}
	return nil
}

func (d *Device) deletePrograms() {
	for k, p := range d.programs {
		gl.DeleteProgram(p.id)
		delete(d.programs, k)
	}
}

func glError(what string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%w: %s: GL error 0x%04x", compute.ErrDeviceUnavailable, what, code)
	}
	return nil
}
