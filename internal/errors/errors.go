// Package errors provides custom error types for the divvy API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Group errors.
var (
	ErrGroupNotFound   = &AppError{Code: "GROUP_NOT_FOUND", Message: "Group not found", StatusCode: http.StatusNotFound}
	ErrNotGroupMember  = &AppError{Code: "NOT_GROUP_MEMBER", Message: "User is not a member of this group", StatusCode: http.StatusForbidden}
	ErrDuplicateMember = &AppError{Code: "DUPLICATE_MEMBER", Message: "User is already a member of this group", StatusCode: http.StatusConflict}
)

// Allocation errors. Malformed split input is rejected before any
// persistence happens so a failed allocation never leaves partial state.
var (
	ErrInvalidAllocation = &AppError{Code: "INVALID_ALLOCATION_INPUT", Message: "Invalid split input", StatusCode: http.StatusBadRequest}
)

// Expense errors.
var (
	ErrExpenseNotFound     = &AppError{Code: "EXPENSE_NOT_FOUND", Message: "Expense not found", StatusCode: http.StatusNotFound}
	ErrExpenseHasSettles   = &AppError{Code: "EXPENSE_HAS_SETTLEMENTS", Message: "Expense is referenced by settlement transfers and can no longer be modified", StatusCode: http.StatusConflict}
	ErrPayerSumMismatch    = &AppError{Code: "PAYER_SUM_MISMATCH", Message: "Payer amounts must sum to the expense amount", StatusCode: http.StatusBadRequest}
	ErrSelfDirectPayment   = &AppError{Code: "SELF_DIRECT_PAYMENT", Message: "Cannot record a direct payment to yourself", StatusCode: http.StatusBadRequest}
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
)

// Ledger & settlement errors. A ledger inconsistency indicates a prior
// partial write; it is surfaced, never silently corrected.
var (
	ErrLedgerInconsistency      = &AppError{Code: "LEDGER_INCONSISTENCY", Message: "Pairwise balance symmetry is violated", StatusCode: http.StatusInternalServerError}
	ErrSettlementPartialFailure = &AppError{Code: "SETTLEMENT_PARTIAL_FAILURE", Message: "Some settlement transfers could not be applied", StatusCode: http.StatusInternalServerError}
	ErrNothingToSettle          = &AppError{Code: "NOTHING_TO_SETTLE", Message: "All balances in this scope are already settled", StatusCode: http.StatusConflict}
)
