package jobs

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/spaghettifunk/lavoro/engine/containers"
	"github.com/spaghettifunk/lavoro/engine/core"
	"github.com/spaghettifunk/lavoro/engine/math"
)

// Hard cap on worker goroutines per scheduler instance.
const MAX_WORKER_COUNT = 8

const queueGrowChunk = 16
const queueInitialCapacity = 64

/**
 * @brief One scheduler instance: the job pool, the work and done queues and,
 * when workers were requested, the goroutines draining the work queue.
 */
type Context struct {
	id string

	items      jobPool
	work       *containers.RingQueue[JobHandle] // pending jobs (fifo with dependency gating)
	done       *containers.RingQueue[JobHandle] // terminal jobs awaiting their callback
	generation uint32

	// Guards the pool and both queues. nil when no workers were requested,
	// making every lock/unlock a no-op in single-threaded mode.
	mutex  *sync.Mutex
	wakeup *sync.Cond
	run    bool

	workerCount uint32
	workers     sync.WaitGroup

	// Decremented on Destroy; PushJob refuses new work once it drops to 0.
	initialized int32 // atomic
}

/**
 * @brief Creates a scheduler. workerCount 0 selects the caller-driven mode
 * where Update processes jobs inline; otherwise workerCount goroutines are
 * spawned (capped at MAX_WORKER_COUNT). namePrefix labels the workers in
 * log output.
 */
func NewContext(workerCount uint32, namePrefix string) *Context {
	if namePrefix == "" {
		namePrefix = "lavorojob"
	}

	ctx := &Context{
		id:          uuid.New().String(),
		work:        containers.NewRingQueue[JobHandle](queueInitialCapacity),
		done:        containers.NewRingQueue[JobHandle](queueInitialCapacity),
		generation:  1, // a zero generation can never make a valid handle
		initialized: 1,
	}

	ctx.workerCount = math.Clamp(workerCount, 0, MAX_WORKER_COUNT)
	if ctx.workerCount > 0 {
		ctx.mutex = &sync.Mutex{}
		ctx.wakeup = sync.NewCond(ctx.mutex)
		ctx.run = true

		for i := uint32(0); i < ctx.workerCount; i++ {
			ctx.workers.Add(1)
			go ctx.worker(i, namePrefix)
		}
	}

	core.LogDebug("jobs: context %s created with %d workers", ctx.id, ctx.workerCount)
	return ctx
}

/**
 * @brief Tears the scheduler down: refuses further submissions, cancels
 * everything still in the work queue, then wakes and joins all workers.
 * Jobs already processing run to completion before their worker exits.
 */
func (ctx *Context) Destroy() {
	if ctx == nil {
		return
	}

	atomic.AddInt32(&ctx.initialized, -1) // accept no more jobs

	ctx.cancelAllJobs()

	if ctx.workerCount > 0 {
		ctx.mutex.Lock()
		ctx.run = false
		ctx.wakeup.Broadcast()
		ctx.mutex.Unlock()

		ctx.workers.Wait()
	}

	core.LogDebug("jobs: context %s destroyed", ctx.id)
}

func (ctx *Context) WorkerCount() uint32 {
	return ctx.workerCount
}

// lock/unlock are no-ops when the scheduler runs without workers, so the
// single-threaded configuration pays nothing for synchronization.
func (ctx *Context) lock() {
	if ctx.mutex != nil {
		ctx.mutex.Lock()
	}
}

func (ctx *Context) unlock() {
	if ctx.mutex != nil {
		ctx.mutex.Unlock()
	}
}

func (ctx *Context) worker(index uint32, namePrefix string) {
	defer ctx.workers.Done()
	core.LogDebug("jobs: worker %s_%d up", namePrefix, index)

	for {
		var hjob JobHandle
		ctx.mutex.Lock()

		if !ctx.run {
			ctx.mutex.Unlock()
			break
		}

		for ctx.work.IsEmpty() {
			ctx.wakeup.Wait()
			if !ctx.run {
				ctx.mutex.Unlock()
				core.LogDebug("jobs: worker %s_%d down", namePrefix, index)
				return
			}
		}

		hjob = ctx.selectAndPopJob()
		ctx.mutex.Unlock()

		if hjob == InvalidJob {
			// Queue holds only jobs still gated on children. Yield and rescan.
			runtime.Gosched()
			continue
		}

		ctx.processOneJob(hjob)
	}

	core.LogDebug("jobs: worker %s_%d down", namePrefix, index)
}

/**
 * @brief Flushes finished jobs and fires their callbacks on the calling
 * goroutine. With no workers it first processes pending jobs inline, up to
 * timeLimit microseconds (0 processes at most one job).
 */
func (ctx *Context) Update(timeLimit uint64) {
	if ctx.workerCount == 0 {
		ctx.updateSingleThreaded(timeLimit)
	}

	// Keep the lock for as little as possible by taking ownership of the
	// whole done queue in one swap.
	items := containers.NewRingQueue[JobHandle](queueInitialCapacity)
	ctx.lock()
	ctx.done.Swap(items)
	ctx.unlock()

	ctx.processFinishedJobs(items)
}

func (ctx *Context) updateSingleThreaded(timeLimit uint64) {
	tstart := core.GetMonotonicTime()
	for !ctx.work.IsEmpty() {
		hjob := ctx.selectAndPopJob()
		if hjob == InvalidJob {
			return // nothing runnable this cycle
		}

		ctx.processOneJob(hjob)

		tend := core.GetMonotonicTime()
		if timeLimit == 0 || (tend-tstart) > timeLimit {
			break
		}
	}
}

func (ctx *Context) processFinishedJobs(items *containers.RingQueue[JobHandle]) {
	for !items.IsEmpty() {
		hjob, _ := items.Dequeue()

		var job Job
		var status JobStatus
		var result int32
		ctx.lock()
		item := ctx.getJobItem(hjob)
		if item == nil {
			ctx.unlock()
			continue
		}
		job = item.job
		status = item.status
		result = item.result
		ctx.unlock()

		if job.Callback != nil {
			// Not under the scheduler lock: the callback may take locks of
			// its own.
			job.Callback(ctx, hjob, status, job.Context, job.Data, result)
		}

		ctx.lock()
		ctx.freeJob(hjob)
		ctx.unlock()
	}
}
