package types

// Each status set is a closed string type. Transition code switches
// exhaustively on these so a new status breaks compilation at every
// call site that has to care about it.

type ExecutionJobStatus string

const (
	ExecutionPending   ExecutionJobStatus = "pending"
	ExecutionRunning   ExecutionJobStatus = "running"
	ExecutionCompleted ExecutionJobStatus = "completed"
	ExecutionFailed    ExecutionJobStatus = "failed"
)

func (s ExecutionJobStatus) Valid() bool {
	switch s {
	case ExecutionPending, ExecutionRunning, ExecutionCompleted, ExecutionFailed:
		return true
	}
	return false
}

func (s ExecutionJobStatus) Terminal() bool {
	return s == ExecutionCompleted || s == ExecutionFailed
}

type HydrationJobStatus string

const (
	HydrationPending   HydrationJobStatus = "pending"
	HydrationRunning   HydrationJobStatus = "running"
	HydrationCompleted HydrationJobStatus = "completed"
	HydrationFailed    HydrationJobStatus = "failed"
)

func (s HydrationJobStatus) Valid() bool {
	switch s {
	case HydrationPending, HydrationRunning, HydrationCompleted, HydrationFailed:
		return true
	}
	return false
}

func (s HydrationJobStatus) Terminal() bool {
	return s == HydrationCompleted || s == HydrationFailed
}

type HydrationJobType string

const (
	HydrationSyllabus  HydrationJobType = "syllabus"
	HydrationNotes     HydrationJobType = "notes"
	HydrationQuestions HydrationJobType = "questions"
	HydrationAssemble  HydrationJobType = "assemble"
)

func (t HydrationJobType) Valid() bool {
	switch t {
	case HydrationSyllabus, HydrationNotes, HydrationQuestions, HydrationAssemble:
		return true
	}
	return false
}

type RegenerationJobStatus string

const (
	RegenerationPending   RegenerationJobStatus = "PENDING"
	RegenerationRunning   RegenerationJobStatus = "RUNNING"
	RegenerationCompleted RegenerationJobStatus = "COMPLETED"
	RegenerationFailed    RegenerationJobStatus = "FAILED"
)

func (s RegenerationJobStatus) Valid() bool {
	switch s {
	case RegenerationPending, RegenerationRunning, RegenerationCompleted, RegenerationFailed:
		return true
	}
	return false
}

func (s RegenerationJobStatus) Terminal() bool {
	return s == RegenerationCompleted || s == RegenerationFailed
}

type RetryIntentStatus string

const (
	RetryIntentPending  RetryIntentStatus = "PENDING"
	RetryIntentConsumed RetryIntentStatus = "CONSUMED"
	RetryIntentRejected RetryIntentStatus = "REJECTED"
)

func (s RetryIntentStatus) Valid() bool {
	switch s {
	case RetryIntentPending, RetryIntentConsumed, RetryIntentRejected:
		return true
	}
	return false
}

type PromotionStatus string

const (
	PromotionPending  PromotionStatus = "PENDING"
	PromotionApproved PromotionStatus = "APPROVED"
	PromotionRejected PromotionStatus = "REJECTED"
)

func (s PromotionStatus) Valid() bool {
	switch s {
	case PromotionPending, PromotionApproved, PromotionRejected:
		return true
	}
	return false
}
