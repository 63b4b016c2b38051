package jobs

import (
	"sync/atomic"

	"github.com/spaghettifunk/lavoro/engine/core"
)

// getJobItem resolves a handle to its record. Returns nil when the index is
// out of range or the slot's generation no longer matches, which is the
// defense against handles to recycled slots. Caller holds the lock.
func (ctx *Context) getJobItem(hjob JobHandle) *jobItem {
	item := ctx.items.get(toIndex(hjob))
	if item == nil || item.generation != toGeneration(hjob) {
		return nil
	}
	return item
}

/**
 * @brief Allocates a job record and returns its handle. The Job struct is
 * copied; the record starts in CREATED with no parent, siblings or children.
 */
func (ctx *Context) CreateJob(job *Job) JobHandle {
	ctx.lock()
	defer ctx.unlock()

	if ctx.items.full() {
		ctx.items.offsetCapacity(poolGrowChunk)
	}

	index := ctx.items.alloc()
	generation := ctx.generation
	ctx.generation++

	item := ctx.items.get(index)
	item.job = *job
	item.timeCreated = core.GetMonotonicTime()
	item.generation = generation
	item.result = 0
	item.status = JOB_STATUS_CREATED
	item.parent = InvalidJob
	item.sibling = InvalidJob
	item.firstChild = InvalidJob
	item.lastChild = InvalidJob
	atomic.StoreInt32(&item.numChildren, 0)
	atomic.StoreInt32(&item.numChildrenCompleted, 0)

	return makeHandle(generation, index)
}

/**
 * @brief Registers hchild as a dependency of hparent: the parent will not
 * run until every child has reached a terminal state.
 *
 * The parent may be set at most once per job, only while the child is still
 * CREATED and before the parent has started processing. Violations are
 * caller bugs; they are logged and reported as JOB_RESULT_ERROR without
 * touching any state.
 */
func (ctx *Context) SetParent(hchild, hparent JobHandle) JobResult {
	ctx.lock()
	defer ctx.unlock()

	child := ctx.getJobItem(hchild)
	parent := ctx.getJobItem(hparent)
	if child == nil || parent == nil {
		core.LogError("jobs: SetParent with stale handle (child: %v parent: %v)", child != nil, parent != nil)
		return JOB_RESULT_INVALID_HANDLE
	}

	if child.status != JOB_STATUS_CREATED {
		core.LogError("jobs: SetParent on a child already %s", child.status)
		return JOB_RESULT_ERROR
	}
	if parent.status > JOB_STATUS_QUEUED {
		// Once the parent has started to process, it is too late.
		core.LogError("jobs: SetParent on a parent already %s", parent.status)
		return JOB_RESULT_ERROR
	}
	if child.parent != InvalidJob || child.sibling != InvalidJob {
		core.LogError("jobs: SetParent called twice for the same child")
		return JOB_RESULT_ERROR
	}

	child.parent = hparent
	child.sibling = InvalidJob
	if parent.firstChild == InvalidJob {
		parent.firstChild = hchild
		parent.lastChild = hchild
	} else {
		lastChild := ctx.getJobItem(parent.lastChild)
		lastChild.sibling = hchild
		parent.lastChild = hchild
	}
	atomic.AddInt32(&parent.numChildren, 1)

	return JOB_RESULT_OK
}

/**
 * @brief Queues a job for execution. A parent must be pushed after its
 * children. Returns JOB_RESULT_ERROR when the scheduler is shutting down,
 * JOB_RESULT_CANCELED when the job was canceled before it was pushed;
 * pushing a job that is already queued or done is a no-op reported as OK.
 */
func (ctx *Context) PushJob(hjob JobHandle) JobResult {
	if atomic.LoadInt32(&ctx.initialized) <= 0 {
		return JOB_RESULT_ERROR
	}

	status, ok := ctx.putWork(hjob)
	if !ok {
		return JOB_RESULT_INVALID_HANDLE
	}
	if status == JOB_STATUS_CANCELED {
		return JOB_RESULT_CANCELED
	}

	if ctx.wakeup != nil {
		ctx.wakeup.Signal()
	}

	return JOB_RESULT_OK
}

// putWork moves a CREATED job into the work queue. Any other status is
// returned unchanged, which makes double pushes and push-after-cancel safe.
func (ctx *Context) putWork(hjob JobHandle) (JobStatus, bool) {
	ctx.lock()
	defer ctx.unlock()

	item := ctx.getJobItem(hjob)
	if item == nil {
		return JOB_STATUS_FREE, false
	}

	if item.status != JOB_STATUS_CREATED {
		return item.status, true
	}

	item.status = JOB_STATUS_QUEUED

	if ctx.work.IsFull() {
		ctx.work.OffsetCapacity(queueGrowChunk)
	}
	ctx.work.Enqueue(hjob)

	return item.status, true
}

// putDone stamps the terminal status and result, queues the handle for the
// next Update flush and credits the parent's completed-children counter.
// The counter update happens under the same lock so a concurrent selection
// scan never sees the child done but the parent still gated.
// Caller holds the lock.
func (ctx *Context) putDone(hjob JobHandle, status JobStatus, result int32) {
	if ctx.done.IsFull() {
		ctx.done.OffsetCapacity(queueGrowChunk)
	}
	ctx.done.Enqueue(hjob)

	item := ctx.getJobItem(hjob)
	if item == nil {
		core.LogError("jobs: putDone with a stale handle %x", uint64(hjob))
		return
	}

	item.status = status
	item.result = result

	if item.parent != InvalidJob {
		if parent := ctx.getJobItem(item.parent); parent != nil {
			atomic.AddInt32(&parent.numChildrenCompleted, 1)
		}
	}
}

/**
 * @brief Returns the opaque context stored at creation, or nil for a stale
 * or invalid handle.
 */
func (ctx *Context) GetContext(hjob JobHandle) interface{} {
	ctx.lock()
	defer ctx.unlock()
	item := ctx.getJobItem(hjob)
	if item == nil {
		return nil
	}
	return item.job.Context
}

/**
 * @brief Returns the opaque data stored at creation, or nil for a stale or
 * invalid handle.
 */
func (ctx *Context) GetData(hjob JobHandle) interface{} {
	ctx.lock()
	defer ctx.unlock()
	item := ctx.getJobItem(hjob)
	if item == nil {
		return nil
	}
	return item.job.Data
}

/**
 * @brief Cancels a job and, depth-first, all of its descendants.
 *
 * A job already processing cannot be canceled; JOB_RESULT_PENDING tells the
 * caller to retry once it has finished. A finished job reports
 * JOB_RESULT_OK. Otherwise every child is canceled first, PENDING results
 * aggregate upward, and the job itself is marked CANCELED; its disposal is
 * deferred until the scheduler next scans it with all children complete.
 */
func (ctx *Context) CancelJob(hjob JobHandle) JobResult {
	ctx.lock()
	defer ctx.unlock()
	return ctx.cancelJob(hjob)
}

func (ctx *Context) cancelJob(hjob JobHandle) JobResult {
	item := ctx.getJobItem(hjob)
	if item == nil {
		return JOB_RESULT_INVALID_HANDLE
	}

	if item.status == JOB_STATUS_PROCESSING {
		return JOB_RESULT_PENDING
	}
	if item.status == JOB_STATUS_FINISHED {
		return JOB_RESULT_OK
	}

	// Only created/queued jobs can be canceled directly, but an already
	// canceled parent still waits here on its remaining children.
	result := JOB_RESULT_CANCELED

	hchild := item.firstChild
	for hchild != InvalidJob {
		childResult := ctx.cancelJob(hchild)
		if childResult == JOB_RESULT_INVALID_HANDLE {
			break // the child is gone, we cannot iterate further
		}

		child := ctx.getJobItem(hchild)
		if child == nil {
			break
		}

		if childResult == JOB_RESULT_PENDING {
			result = JOB_RESULT_PENDING
		}

		hchild = child.sibling
	}

	item.status = JOB_STATUS_CANCELED
	return result
}

// cancelAllJobs moves everything still in the work queue straight to the
// done queue as CANCELED, without dispatching. Used at teardown.
func (ctx *Context) cancelAllJobs() {
	ctx.lock()
	defer ctx.unlock()

	size := ctx.work.Len()
	for i := 0; i < size; i++ {
		ctx.putDone(ctx.work.At(i), JOB_STATUS_CANCELED, 0)
	}
	ctx.work.Clear()
}

// selectAndPopJob scans the work queue for the first job whose children have
// all completed. Canceled jobs whose children are done are disposed of to
// the done queue along the way. Returns InvalidJob when nothing is
// runnable. Caller holds the lock.
func (ctx *Context) selectAndPopJob() JobHandle {
	size := ctx.work.Len()
	for i := 0; i < size; {
		hjob := ctx.work.At(i)
		item := ctx.getJobItem(hjob)
		if item == nil {
			// Cannot happen through the public API; drop the entry.
			core.LogError("jobs: stale handle %x in work queue", uint64(hjob))
			size--
			ctx.work.Erase(i)
			continue
		}

		childrenFinished := atomic.LoadInt32(&item.numChildren) == atomic.LoadInt32(&item.numChildrenCompleted)

		if item.status == JOB_STATUS_CANCELED && childrenFinished {
			size--
			ctx.work.Erase(i)
			ctx.putDone(hjob, JOB_STATUS_CANCELED, 0)
			continue
		}

		if !childrenFinished {
			// Still waiting for the children to finish.
			i++
			continue
		}

		ctx.work.Erase(i)
		return hjob
	}
	return InvalidJob
}

// processOneJob runs a selected job's payload. The status is re-validated
// under the lock first: the job may have been canceled between selection
// and execution. Flipping to PROCESSING makes it immune to cancellation
// for the duration of the payload.
func (ctx *Context) processOneJob(hjob JobHandle) {
	var job Job
	ctx.lock()

	item := ctx.getJobItem(hjob)
	if item == nil {
		ctx.unlock()
		return
	}

	if item.status > JOB_STATUS_QUEUED {
		// Canceled or finished just before we got to it.
		ctx.putDone(hjob, item.status, 0)
		ctx.unlock()
		return
	}

	job = item.job
	item.status = JOB_STATUS_PROCESSING
	ctx.unlock()

	// The lock is not held across the payload: payloads may take locks of
	// their own, and holding ours here invites deadlock.
	var result int32
	if job.Process != nil {
		result = job.Process(ctx, hjob, job.Context, job.Data)
	}

	ctx.lock()
	ctx.putDone(hjob, JOB_STATUS_FINISHED, result)
	ctx.unlock()
}

// removeChildFromParent unlinks a job from its parent's child list, fixing
// up the first/last pointers and the predecessor's sibling link for any
// removal position. A no-op when the parent no longer resolves, and
// idempotent for an already detached child. Caller holds the lock.
func (ctx *Context) removeChildFromParent(hchild JobHandle) {
	child := ctx.getJobItem(hchild)
	if child == nil {
		return
	}

	parent := ctx.getJobItem(child.parent)
	if parent == nil {
		return
	}
	child.parent = InvalidJob

	prev := InvalidJob
	cur := parent.firstChild

	for cur != InvalidJob {
		curItem := ctx.getJobItem(cur)
		next := curItem.sibling

		if cur == hchild {
			if prev == InvalidJob {
				parent.firstChild = next
			} else {
				prevItem := ctx.getJobItem(prev)
				prevItem.sibling = next
			}

			if parent.lastChild == hchild {
				if prev == InvalidJob {
					parent.lastChild = next
				} else {
					parent.lastChild = prev
				}
			}

			curItem.sibling = InvalidJob
			return
		}

		prev = cur
		cur = next
	}
}

// freeJob detaches the record from its parent, invalidates the slot's
// generation and returns it to the pool. Called once the terminal callback
// has fired. Caller holds the lock.
func (ctx *Context) freeJob(hjob JobHandle) {
	item := ctx.getJobItem(hjob)
	if item == nil {
		core.LogError("jobs: freeJob with a stale handle %x", uint64(hjob))
		return
	}

	ctx.removeChildFromParent(hjob)

	item.generation = invalidGeneration
	item.status = JOB_STATUS_FREE
	item.job = Job{}

	ctx.items.release(toIndex(hjob))
}
