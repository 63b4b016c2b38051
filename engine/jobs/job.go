package jobs

/** @brief The lifecycle of a single job record. */
type JobStatus int32

const (
	JOB_STATUS_FREE JobStatus = iota
	JOB_STATUS_CREATED
	JOB_STATUS_QUEUED
	JOB_STATUS_PROCESSING
	// Terminal states. Once reached, the job is placed on the done queue and
	// only awaits its callback before being freed.
	JOB_STATUS_FINISHED
	JOB_STATUS_CANCELED
)

func (s JobStatus) String() string {
	switch s {
	case JOB_STATUS_FREE:
		return "FREE"
	case JOB_STATUS_CREATED:
		return "CREATED"
	case JOB_STATUS_QUEUED:
		return "QUEUED"
	case JOB_STATUS_PROCESSING:
		return "PROCESSING"
	case JOB_STATUS_FINISHED:
		return "FINISHED"
	case JOB_STATUS_CANCELED:
		return "CANCELED"
	}
	return "UNKNOWN"
}

/** @brief Result codes returned from the scheduler API. */
type JobResult int32

const (
	JOB_RESULT_OK JobResult = iota
	JOB_RESULT_ERROR
	JOB_RESULT_INVALID_HANDLE
	JOB_RESULT_CANCELED
	// The job (or one of its descendants) is still processing.
	JOB_RESULT_PENDING
)

func (r JobResult) String() string {
	switch r {
	case JOB_RESULT_OK:
		return "OK"
	case JOB_RESULT_ERROR:
		return "ERROR"
	case JOB_RESULT_INVALID_HANDLE:
		return "INVALID_HANDLE"
	case JOB_RESULT_CANCELED:
		return "CANCELED"
	case JOB_RESULT_PENDING:
		return "PENDING"
	}
	return "UNKNOWN"
}

/**
 * @brief Processes the job payload. May run on any worker goroutine, or on
 * the caller's goroutine in single-threaded mode. The returned value is
 * opaque to the scheduler and is carried through to the callback.
 */
type JobProcess func(ctx *Context, job JobHandle, userContext, userData interface{}) int32

/**
 * @brief Invoked once the job reaches a terminal state. Always runs on the
 * goroutine that calls Update, so it may touch non-thread-safe systems.
 * result is the value returned by the process function for FINISHED jobs, 0
 * for canceled ones.
 */
type JobCallback func(ctx *Context, job JobHandle, status JobStatus, userContext, userData interface{}, result int32)

/**
 * @brief Describes a job to be created. The struct is copied as-is; the
 * pointer is not stored.
 */
type Job struct {
	/** @brief Function processing the payload. Required. */
	Process JobProcess
	/** @brief Completion function, run from the Update goroutine. Optional. */
	Callback JobCallback
	/** @brief Opaque user context handed back to both functions. */
	Context interface{}
	/** @brief Opaque user payload handed back to both functions. */
	Data interface{}
}

// One slot in the job pool. Linkage between records is by handle, never by
// pointer, so records stay resolvable (or safely fail to resolve) when the
// pool storage grows and moves.
type jobItem struct {
	job        Job
	parent     JobHandle // at most one parent (InvalidJob == none)
	sibling    JobHandle // next sibling under the same parent
	firstChild JobHandle
	lastChild  JobHandle

	timeCreated uint64 // to help sorting, and avoid starvation
	generation  uint32 // detects stale handles to a recycled slot
	result      int32  // payload result after processing

	// Run this job only after all children have completed.
	numChildren          int32 // atomic
	numChildrenCompleted int32 // atomic

	status JobStatus
}
