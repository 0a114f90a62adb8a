// Package compute defines the device abstraction the terrain generator dispatches to:
// float32 buffers, two parameterized kernels, ordered batches and readback.
package compute

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDeviceUnavailable reports a missing backend, a failed allocation or a closed device.
	ErrDeviceUnavailable = errors.New("compute device unavailable")
	// ErrReadback reports a failed copy of device memory to the host.
	ErrReadback = errors.New("readback failed")
	// ErrForeignBuffer reports a buffer that was not created by the device it was passed to.
	ErrForeignBuffer = errors.New("buffer belongs to another device")
)

// BufferUsage describes how a buffer is accessed.
type BufferUsage uint8

const (
	// UsageStorage buffers are read and written by kernels.
	UsageStorage BufferUsage = 1 << iota
	// UsageReadback buffers are copy targets the host can read.
	UsageReadback
)

func (u BufferUsage) String() string {
	switch u {
	case UsageStorage:
		return "storage"
	case UsageReadback:
		return "readback"
	case UsageStorage | UsageReadback:
		return "storage|readback"
	default:
		return fmt.Sprintf("BufferUsage(%d)", uint8(u))
	}
}

// Buffer is a device allocation of float32 elements.
type Buffer interface {
	Label() string
	Len() int
	Usage() BufferUsage
}

// Kernel identifies one of the compiled compute programs.
type Kernel uint8

const (
	// KernelGradientFill writes one unit gradient per lattice corner.
	KernelGradientFill Kernel = iota
	// KernelVertexEvaluate adds amplitude*noise into each vertex height.
	KernelVertexEvaluate
)

func (k Kernel) String() string {
	switch k {
	case KernelGradientFill:
		return "gradient-fill"
	case KernelVertexEvaluate:
		return "vertex-evaluate"
	default:
		return fmt.Sprintf("Kernel(%d)", uint8(k))
	}
}

// Params is the uniform block shared by both kernels.
type Params struct {
	VertexColumns  uint32
	VertexRows     uint32
	TriangleSide   float32
	LatticeColumns uint32 // gradient corners per row
	LatticeRows    uint32
	CellSide       float32
	Seed           uint32
	Amplitude      float32
}

// Dispatch launches a kernel over a Width x Height grid of work units.
type Dispatch struct {
	Kernel    Kernel
	Width     uint32
	Height    uint32
	Params    Params
	Gradients Buffer // interleaved x,y pairs
	Heights   Buffer // ignored by KernelGradientFill
}

// OpKind enumerates batch operations.
type OpKind uint8

const (
	OpClear OpKind = iota
	OpDispatch
	OpCopy
)

// Op is one step of a batch. Every op completes before the next one starts.
type Op struct {
	Kind     OpKind
	Target   Buffer // OpClear
	Dispatch Dispatch
	Src, Dst Buffer // OpCopy
}

// Batch is an ordered list of ops submitted together.
type Batch struct {
	Label string
	Ops   []Op
}

// NewBatch returns an empty batch.
func NewBatch(label string) *Batch {
	return &Batch{Label: label}
}

// Clear zeroes buf.
func (b *Batch) Clear(buf Buffer) *Batch {
	b.Ops = append(b.Ops, Op{Kind: OpClear, Target: buf})
	return b
}

// Dispatch appends a kernel launch.
func (b *Batch) Dispatch(d Dispatch) *Batch {
	b.Ops = append(b.Ops, Op{Kind: OpDispatch, Dispatch: d})
	return b
}

// Copy copies all of src into the start of dst.
func (b *Batch) Copy(src, dst Buffer) *Batch {
	b.Ops = append(b.Ops, Op{Kind: OpCopy, Src: src, Dst: dst})
	return b
}

// Validate checks buffer roles and sizes that every backend relies on.
func (b *Batch) Validate() error {
	for i, op := range b.Ops {
		switch op.Kind {
		case OpClear:
			if op.Target == nil {
				return fmt.Errorf("batch %q op %d: clear without target", b.Label, i)
			}
		case OpCopy:
			if op.Src == nil || op.Dst == nil {
				return fmt.Errorf("batch %q op %d: copy needs src and dst", b.Label, i)
			}
			if op.Dst.Len() < op.Src.Len() {
				return fmt.Errorf("batch %q op %d: copy of %d floats into %q of %d",
					b.Label, i, op.Src.Len(), op.Dst.Label(), op.Dst.Len())
			}
		case OpDispatch:
			if err := op.Dispatch.validate(); err != nil {
				return fmt.Errorf("batch %q op %d: %w", b.Label, i, err)
			}
		default:
			return fmt.Errorf("batch %q op %d: unknown op kind %d", b.Label, i, op.Kind)
		}
	}
	return nil
}

func (d Dispatch) validate() error {
	p := d.Params
	if d.Gradients == nil || d.Gradients.Usage()&UsageStorage == 0 {
		return fmt.Errorf("%s: gradients must be a storage buffer", d.Kernel)
	}
	if need := 2 * int(p.LatticeColumns) * int(p.LatticeRows); d.Gradients.Len() < need {
		return fmt.Errorf("%s: gradient buffer %q holds %d floats, lattice needs %d",
			d.Kernel, d.Gradients.Label(), d.Gradients.Len(), need)
	}
	switch d.Kernel {
	case KernelGradientFill:
		if d.Width != p.LatticeColumns || d.Height != p.LatticeRows {
			return fmt.Errorf("%s: extent %dx%d does not match lattice %dx%d",
				d.Kernel, d.Width, d.Height, p.LatticeColumns, p.LatticeRows)
		}
	case KernelVertexEvaluate:
		if d.Heights == nil || d.Heights.Usage()&UsageStorage == 0 {
			return fmt.Errorf("%s: heights must be a storage buffer", d.Kernel)
		}
		if d.Width != p.VertexColumns || d.Height != p.VertexRows {
			return fmt.Errorf("%s: extent %dx%d does not match vertex grid %dx%d",
				d.Kernel, d.Width, d.Height, p.VertexColumns, p.VertexRows)
		}
		if need := int(p.VertexColumns) * int(p.VertexRows); d.Heights.Len() < need {
			return fmt.Errorf("%s: height buffer %q holds %d floats, grid needs %d",
				d.Kernel, d.Heights.Label(), d.Heights.Len(), need)
		}
		if p.CellSide < 1 {
			return fmt.Errorf("%s: cell side %v", d.Kernel, p.CellSide)
		}
	default:
		return fmt.Errorf("unknown kernel %d", d.Kernel)
	}
	return nil
}

// Device runs batches in submission order.
type Device interface {
	Name() string
	// NewBuffer allocates length float32 elements, zero-initialized.
	NewBuffer(label string, length int, usage BufferUsage) (Buffer, error)
	// Submit queues a batch. It may return before the batch has executed.
	Submit(b *Batch) error
	// Read waits for all previously submitted work and copies a readback buffer into dst.
	Read(ctx context.Context, buf Buffer, dst []float32) error
	// Wait blocks until all submitted work is done and reports kernel faults raised by it.
	Wait(ctx context.Context) error
	Release(buf Buffer)
	Close() error
}
