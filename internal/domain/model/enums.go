package model

// PRStatus represents the state of a pull request.
// Values match the Azure DevOps wire tokens and serialize as-is.
type PRStatus string

const (
	PRStatusActive    PRStatus = "active"
	PRStatusCompleted PRStatus = "completed"
	PRStatusAbandoned PRStatus = "abandoned"
)

// ThreadKind classifies a comment thread. System thread types carrying a
// property bag (vote updates, status updates) are folded into ThreadKindSystem
// at the adapter boundary; the vote-update flag and vote value are decoded
// there too, so nothing downstream reads the raw property bag.
type ThreadKind string

const (
	ThreadKindText       ThreadKind = "text"
	ThreadKindSystem     ThreadKind = "system"
	ThreadKindCodeChange ThreadKind = "codeChange"
	ThreadKindUnknown    ThreadKind = "unknown"
)

// ThreadStatus is the resolution state of a comment thread.
type ThreadStatus string

const (
	ThreadStatusFixed    ThreadStatus = "fixed"
	ThreadStatusClosed   ThreadStatus = "closed"
	ThreadStatusWontFix  ThreadStatus = "wontFix"
	ThreadStatusByDesign ThreadStatus = "byDesign"
	ThreadStatusActive   ThreadStatus = "active"
	ThreadStatusPending  ThreadStatus = "pending"
	ThreadStatusUnknown  ThreadStatus = "unknown"
)

// IterationReason is the cause of a pull request iteration. Reasons other than
// the named constants pass through from the wire verbatim.
type IterationReason string

const (
	IterationReasonCreate    IterationReason = "create"
	IterationReasonPush      IterationReason = "push"
	IterationReasonForcePush IterationReason = "forcePush"
)

// BuildResult is the terminal outcome of a build run. Empty until the run
// reaches a terminal state.
type BuildResult string

const (
	BuildResultSucceeded          BuildResult = "succeeded"
	BuildResultFailed             BuildResult = "failed"
	BuildResultCanceled           BuildResult = "canceled"
	BuildResultPartiallySucceeded BuildResult = "partiallySucceeded"
)

// FlagSeverity grades an outlier dimension flag.
type FlagSeverity string

const (
	FlagSeverityBad  FlagSeverity = "bad"
	FlagSeverityWarn FlagSeverity = "warn"
)
