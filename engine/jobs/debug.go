package jobs

import (
	"github.com/spaghettifunk/lavoro/engine/core"
)

// DebugDump logs the contents of the work and done queues. Diagnostic only.
func (ctx *Context) DebugDump() {
	ctx.lock()
	defer ctx.unlock()

	core.LogDebug("jobs: context %s (workers: %d)", ctx.id, ctx.workerCount)

	core.LogDebug("  DONE: sz: %d", ctx.done.Len())
	for i := 0; i < ctx.done.Len(); i++ {
		ctx.debugLogJob(ctx.done.At(i))
	}

	core.LogDebug("  QUEUE: sz: %d", ctx.work.Len())
	for i := 0; i < ctx.work.Len(); i++ {
		ctx.debugLogJob(ctx.work.At(i))
	}
}

func (ctx *Context) debugLogJob(hjob JobHandle) {
	status := JOB_STATUS_FREE
	if item := ctx.getJobItem(hjob); item != nil {
		status = item.status
	}
	core.LogDebug("    job: %x (gen: %d, idx: %d) %s", uint64(hjob), toGeneration(hjob), toIndex(hjob), status)
}
