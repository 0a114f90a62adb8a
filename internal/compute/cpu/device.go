// Package cpu implements compute.Device on the host. Batches run in submission order on a
// single queue goroutine and each kernel is spread over a row-band worker pool.
package cpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"perlin-terrain/internal/compute"
	"perlin-terrain/internal/noise"
	"perlin-terrain/internal/profiling"
)

type buffer struct {
	dev    *Device
	label  string
	usage  compute.BufferUsage
	length int
	data   []float32 // owned by the queue goroutine once submitted
}

func (b *buffer) Label() string { return b.label }

func (b *buffer) Len() int { return b.length }

func (b *buffer) Usage() compute.BufferUsage { return b.usage }

// task is one entry of the device queue: a batch, a fence or a release.
type task struct {
	batch   *compute.Batch
	fence   chan error
	read    func() // runs on the queue goroutine before the fence is signalled
	release *buffer
}

// Device is a host compute device.
type Device struct {
	logger *slog.Logger
	pool   *WorkerPool
	queue  chan task
	done   chan struct{}

	mu     sync.Mutex
	closed bool

	// fault is the first kernel error since the last fence; only the queue goroutine touches it
	fault error
}

// Option configures a Device.
type Option func(*Device)

// WithLogger sets the logger used for batch tracing.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) { d.logger = l }
}

// New starts a host device with the given number of workers. workers <= 0 uses GOMAXPROCS.
func New(workers int, opts ...Option) *Device {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	d := &Device{
		logger: slog.Default(),
		pool:   NewWorkerPool(workers, workers*8),
		queue:  make(chan task, 64),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(d)
	}
	go d.run()
	return d
}

// Name implements compute.Device.
func (d *Device) Name() string {
	return fmt.Sprintf("cpu(%d workers)", d.pool.Workers())
}

// NewBuffer implements compute.Device.
func (d *Device) NewBuffer(label string, length int, usage compute.BufferUsage) (compute.Buffer, error) {
	if length < 0 {
		return nil, fmt.Errorf("%w: buffer %q with negative length %d", compute.ErrDeviceUnavailable, label, length)
	}
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("%w: device closed", compute.ErrDeviceUnavailable)
	}
	return &buffer{dev: d, label: label, usage: usage, length: length, data: make([]float32, length)}, nil
}

func (d *Device) own(buf compute.Buffer) (*buffer, error) {
	b, ok := buf.(*buffer)
	if !ok || b.dev != d {
		name := "<nil>"
		if buf != nil {
			name = buf.Label()
		}
		return nil, fmt.Errorf("%w: %q", compute.ErrForeignBuffer, name)
	}
	return b, nil
}

func (d *Device) checkOwnership(b *compute.Batch) error {
	for _, op := range b.Ops {
		var bufs []compute.Buffer
		switch op.Kind {
		case compute.OpClear:
			bufs = []compute.Buffer{op.Target}
		case compute.OpCopy:
			bufs = []compute.Buffer{op.Src, op.Dst}
		case compute.OpDispatch:
			bufs = []compute.Buffer{op.Dispatch.Gradients}
			if op.Dispatch.Kernel == compute.KernelVertexEvaluate {
				bufs = append(bufs, op.Dispatch.Heights)
			}
		}
		for _, buf := range bufs {
			if _, err := d.own(buf); err != nil {
				return err
			}
		}
	}
	return nil
}

// Submit implements compute.Device.
func (d *Device) Submit(b *compute.Batch) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if err := d.checkOwnership(b); err != nil {
		return err
	}
	return d.enqueue(task{batch: b})
}

func (d *Device) enqueue(t task) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("%w: device closed", compute.ErrDeviceUnavailable)
	}
	d.queue <- t
	return nil
}

// Wait implements compute.Device.
func (d *Device) Wait(ctx context.Context) error {
	return d.fence(ctx, task{})
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
	// stage through a private copy so a cancelled caller never races the queue
	var staged []float32
	read := func() { staged = append([]float32(nil), b.data...) }
	if err := d.fence(ctx, task{read: read}); err != nil {
		return err
	}
	if len(staged) != b.length {
		return fmt.Errorf("%w: buffer %q was released", compute.ErrReadback, b.label)
	}
	copy(dst, staged)
	return nil
}

func (d *Device) fence(ctx context.Context, t task) error {
	t.fence = make(chan error, 1)
	if err := d.enqueue(t); err != nil {
		return err
	}
	select {
	case err := <-t.fence:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release implements compute.Device.
func (d *Device) Release(buf compute.Buffer) {
	b, err := d.own(buf)
	if err != nil {
		return
	}
	_ = d.enqueue(task{release: b})
}

// Close drains the queue and stops the workers.
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
	d.pool.Shutdown()
	return nil
}

func (d *Device) run() {
	defer close(d.done)
	for t := range d.queue {
		switch {
		case t.batch != nil:
			d.execute(t.batch)
		case t.release != nil:
			t.release.data = nil
		}
		if t.fence != nil {
			if t.read != nil {
				t.read()
			}
			t.fence <- d.fault
			d.fault = nil
		}
	}
}

func (d *Device) execute(b *compute.Batch) {
	d.logger.Debug("cpu batch", "label", b.Label, "ops", len(b.Ops))
	for i, op := range b.Ops {
		var err error
		switch op.Kind {
		case compute.OpClear:
			t := op.Target.(*buffer)
			clear(t.data)
		case compute.OpCopy:
			copy(op.Dst.(*buffer).data, op.Src.(*buffer).data)
		case compute.OpDispatch:
			err = d.dispatch(op.Dispatch)
		}
		if err != nil {
			d.logger.Warn("cpu kernel fault", "batch", b.Label, "op", i, "error", err)
			if d.fault == nil {
				d.fault = fmt.Errorf("batch %q op %d: %w", b.Label, i, err)
			}
		}
	}
}

func (d *Device) dispatch(disp compute.Dispatch) error {
	defer profiling.Track("cpu." + disp.Kernel.String())()

	p := disp.Params
	lattice := noise.Lattice{
		WidthCells:  int(p.LatticeColumns) - 1,
		HeightCells: int(p.LatticeRows) - 1,
		CellSide:    p.CellSide,
	}
	grads := disp.Gradients.(*buffer).data
	if len(grads) < 2*lattice.Points() {
		return fmt.Errorf("gradient buffer %q was released", disp.Gradients.Label())
	}

	switch disp.Kernel {
	case compute.KernelGradientFill:
		return d.pool.ForRows(lattice.Rows(), func(lo, hi int) error {
			noise.FillGradients(grads, lattice, p.Seed, lo, hi)
			return nil
		})
	case compute.KernelVertexEvaluate:
		grid := noise.VertexGrid{
			Columns: int(p.VertexColumns),
			Rows:    int(p.VertexRows),
			Side:    p.TriangleSide,
		}
		heights := disp.Heights.(*buffer).data
		if len(heights) < grid.Count() {
			return fmt.Errorf("height buffer %q was released", disp.Heights.Label())
		}
		return d.pool.ForRows(grid.Rows, func(lo, hi int) error {
			return noise.AccumulateRows(heights, grads, grid, lattice, p.Amplitude, lo, hi)
		})
	}
	return errors.New("unknown kernel")
}
