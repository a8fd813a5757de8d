package cpu

import (
	"fmt"
	"runtime"
	"sync"
)

// A row of pixels queued for execution.
type job struct {
	x, y, w uint32
	fn      func(x, y uint32)
	done    *sync.WaitGroup
}

// A Device is a pool of worker goroutines that executes per-pixel kernels.
type Device struct {
	Name    string
	Workers int

	sync.Mutex
	wg   sync.WaitGroup
	jobs chan job
}

// Create a new device. A non-positive worker count selects one worker per CPU.
func NewDevice(name string, workers int) *Device {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Device{
		Name:    name,
		Workers: workers,
	}
}

// Split the available CPUs into count devices.
func SelectDevices(count, workersPerDevice int) []*Device {
	if count <= 0 {
		count = 1
	}
	if workersPerDevice <= 0 {
		workersPerDevice = runtime.NumCPU() / count
		if workersPerDevice < 1 {
			workersPerDevice = 1
		}
	}

	devices := make([]*Device, count)
	for idx := range devices {
		devices[idx] = NewDevice(fmt.Sprintf("CPU %d", idx), workersPerDevice)
	}
	return devices
}

// Get the speed estimate relative to a single core.
func (d *Device) Speed() uint32 {
	return uint32(d.Workers)
}

func (d *Device) String() string {
	return fmt.Sprintf("Name: %s\nWorkers: %d", d.Name, d.Workers)
}

// Start the worker pool. Calling Init on an initialized device is a no-op.
func (d *Device) Init() error {
	d.Lock()
	defer d.Unlock()

	if d.jobs != nil {
		return nil
	}
	if d.Workers <= 0 {
		return fmt.Errorf("cpu device: invalid worker count %d", d.Workers)
	}

	d.jobs = make(chan job, d.Workers*4)
	for i := 0; i < d.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return nil
}

// Stop the worker pool and wait for all workers to exit.
func (d *Device) Close() {
	d.Lock()
	defer d.Unlock()

	if d.jobs == nil {
		return
	}
	close(d.jobs)
	d.wg.Wait()
	d.jobs = nil
}

func (d *Device) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		for col := j.x; col < j.x+j.w; col++ {
			j.fn(col, j.y)
		}
		j.done.Done()
	}
}

// Invoke fn for every pixel in [x, x+w) x [y, y+h) and block until all
// invocations complete. Rows are distributed across the device workers. If the
// device has not been initialized the rows are processed on the calling
// goroutine.
func (d *Device) Exec2D(x, y, w, h uint32, fn func(x, y uint32)) {
	d.Lock()
	jobs := d.jobs
	if jobs == nil {
		d.Unlock()
		for row := y; row < y+h; row++ {
			for col := x; col < x+w; col++ {
				fn(col, row)
			}
		}
		return
	}

	var done sync.WaitGroup
	done.Add(int(h))
	for row := y; row < y+h; row++ {
		jobs <- job{x: x, y: row, w: w, fn: fn, done: &done}
	}
	d.Unlock()
	done.Wait()
}
