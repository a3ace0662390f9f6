package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound      = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput  = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrComputation   = NewDomainError("COMPUTATION_ERROR", "Computation is undefined for the given input")
	ErrLimitExceeded = NewDomainError("LIMIT_EXCEEDED", "Request exceeds the configured limit")
	ErrRuleSource    = NewDomainError("RULE_SOURCE_ERROR", "Rule snapshot is unavailable")
)
