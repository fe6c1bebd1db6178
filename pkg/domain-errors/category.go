package domainerrors

// Category groups codes by how a caller is expected to react.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryConflict   Category = "conflict"
	CategoryNotFound   Category = "not_found"
	CategoryCapacity   Category = "capacity"
	CategoryRetryable  Category = "retryable"
	CategoryPermanent  Category = "permanent"
	CategoryInternal   Category = "internal"
)

var categories = map[Code]Category{
	CodeBadRequest:         CategoryValidation,
	CodeValidation:         CategoryValidation,
	CodeInvalidInput:       CategoryValidation,
	CodeForbidden:          CategoryValidation,
	CodeUnauthorized:       CategoryValidation,
	CodeNotLeader:          CategoryValidation,
	CodeLeaderCannotLeave:  CategoryValidation,
	CodeAccountNotVerified: CategoryValidation,
	CodeBillingKeyMissing:  CategoryValidation,
	CodeNotFound:           CategoryNotFound,
	CodeConflict:           CategoryConflict,
	CodeInvalidState:       CategoryConflict,
	CodeDuplicatePayment:   CategoryConflict,
	CodeDuplicateSettle:    CategoryConflict,
	CodeAlreadyCompleted:   CategoryConflict,
	CodeRetryNotAllowed:    CategoryConflict,
	CodePartyFull:          CategoryCapacity,
	CodePaymentFailed:      CategoryRetryable,
	CodeTimeout:            CategoryRetryable,
	CodeUnavailable:        CategoryRetryable,
	CodePermanentFailure:   CategoryPermanent,
	CodeInternal:           CategoryInternal,
	CodeInvariantViolation: CategoryInternal,
}

// CategoryOf maps a code to its category. Unknown codes are internal.
func CategoryOf(code Code) Category {
	if c, ok := categories[code]; ok {
		return c
	}
	return CategoryInternal
}

// Retryable reports whether err is a transient failure worth retrying.
func Retryable(err error) bool {
	return CategoryOf(CodeOf(err)) == CategoryRetryable
}
