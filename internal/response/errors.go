package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrStaffAccessOnly   ErrCode = "STAFF_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrConflict        ErrCode = "CONFLICT"
	ErrActionForbidden ErrCode = "ACTION_FORBIDDEN"

	// ─── Exam lifecycle ────────────────────────────────────────────────
	ErrTestNotAvailable   ErrCode = "TEST_NOT_AVAILABLE"
	ErrTestNotPublished   ErrCode = "TEST_NOT_PUBLISHED"
	ErrTestNotDraft       ErrCode = "TEST_NOT_DRAFT"
	ErrNoQuestions        ErrCode = "NO_QUESTIONS"
	ErrAttemptInProgress  ErrCode = "ATTEMPT_IN_PROGRESS"
	ErrAttemptTerminated  ErrCode = "ATTEMPT_TERMINATED"
	ErrAttemptLocked      ErrCode = "ATTEMPT_LOCKED"
	ErrRetryNotAllowed    ErrCode = "RETRY_NOT_ALLOWED"
	ErrUnknownViolation   ErrCode = "UNKNOWN_VIOLATION_TYPE"
	ErrNoDeviceSession    ErrCode = "NO_DEVICE_SESSION"
	ErrDeviceSessionStale ErrCode = "DEVICE_SESSION_STALE"

	// ─── Grading ───────────────────────────────────────────────────────
	ErrAlreadyGraded  ErrCode = "ALREADY_GRADED"
	ErrInvalidBand    ErrCode = "INVALID_BAND"
	ErrNotSubjective  ErrCode = "NOT_SUBJECTIVE_SKILL"
	ErrReasonRequired ErrCode = "OVERRIDE_REASON_REQUIRED"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email/registration number or password."
	case ErrSessionActive:
		return "You are already signed in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please sign in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is not valid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrStaffAccessOnly:
		return "This resource is restricted to faculty and administrators."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "The ID format is not valid."
	case ErrInvalidPayload:
		return "The request payload is not valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "The requested resource was not found."
	case ErrConflict:
		return "The resource already exists."
	case ErrActionForbidden:
		return "This action is not allowed."

	// ─── Exam lifecycle ────────────────────────────────────────────────
	case ErrTestNotAvailable:
		return "This test is not currently available."
	case ErrTestNotPublished:
		return "This test has not been published."
	case ErrTestNotDraft:
		return "This test is not in DRAFT status."
	case ErrNoQuestions:
		return "This test has no questions."
	case ErrAttemptInProgress:
		return "An exam attempt is already in progress."
	case ErrAttemptTerminated:
		return "This attempt has been terminated for security violations."
	case ErrAttemptLocked:
		return "This attempt has been submitted and locked."
	case ErrRetryNotAllowed:
		return "You have already completed this test. A retry has not been approved."
	case ErrUnknownViolation:
		return "The reported violation type is not recognized."
	case ErrNoDeviceSession:
		return "No active device session. Start a session before the exam."
	case ErrDeviceSessionStale:
		return "The device session has expired due to inactivity."

	// ─── Grading ───────────────────────────────────────────────────────
	case ErrAlreadyGraded:
		return "This submission has already been graded."
	case ErrInvalidBand:
		return "Band scores must be between 0 and 9 in 0.5 steps."
	case ErrNotSubjective:
		return "Only writing and speaking submissions are graded manually."
	case ErrReasonRequired:
		return "A reason is required to override a score."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "The file type is not supported."
	case ErrFileTooLarge:
		return "The file exceeds the size limit."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
