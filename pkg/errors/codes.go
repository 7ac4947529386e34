package errors

// ErrorCode identifies a specific failure category within the curation
// pipeline.  Codes are grouped by the component boundary they originate from
// so that aggregate run reports can bucket failures without string matching.
type ErrorCode string

func (c ErrorCode) String() string { return string(c) }

// Common codes.
const (
	CodeOK       ErrorCode = "OK"
	CodeUnknown  ErrorCode = "COMMON_000"
	CodeInternal ErrorCode = "COMMON_001"
	CodeNotFound ErrorCode = "COMMON_002"
	CodeConflict ErrorCode = "COMMON_003"
	CodeTimeout  ErrorCode = "COMMON_004"
	CodeInvalid  ErrorCode = "COMMON_005"
)

// Configuration codes.  These are the only codes treated as fatal by the
// build and assembly entry points; everything else is absorbed per candidate.
const (
	CodeConfigInvalid ErrorCode = "CFG_001"
	CodePathUnusable  ErrorCode = "CFG_002"
)

// Alignment codes.
const (
	CodeAlignmentFailed     ErrorCode = "ALN_001"
	CodeAlignmentTimeout    ErrorCode = "ALN_002"
	CodeAlignmentSkipped    ErrorCode = "ALN_003"
	CodeIncompleteAlignment ErrorCode = "ALN_004"
	CodeUnmappedHeavyAtom   ErrorCode = "ALN_005"
	CodeUnresolvedNeighbor  ErrorCode = "ALN_006"
)

// Model build codes.
const (
	CodeMatchRejected    ErrorCode = "MDL_001"
	CodeModelWriteFailed ErrorCode = "MDL_002"
	CodeIndexCorrupt     ErrorCode = "MDL_003"
)

// Assembly codes.
const (
	CodeContinuityConflict ErrorCode = "ASM_001"
	CodeRelabelFailed      ErrorCode = "ASM_002"
	CodeAuditUnavailable   ErrorCode = "ASM_003"
)

// Infrastructure codes.
const (
	CodeStorageError ErrorCode = "INF_001"
	CodeCacheError   ErrorCode = "INF_002"
	CodeDBError      ErrorCode = "INF_003"
	CodePublishError ErrorCode = "INF_004"
)

// IsFatal reports whether the code aborts an entire build or assembly run.
// Per-candidate failures are never fatal; only configuration-level problems
// stop the pipeline.
func (c ErrorCode) IsFatal() bool {
	switch c {
	case CodeConfigInvalid, CodePathUnusable:
		return true
	}
	return false
}
