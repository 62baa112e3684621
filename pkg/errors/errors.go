package errors

import "fmt"

// Error codes
const (
	CodeDataUnavailable = "DATA_UNAVAILABLE"
	CodeNetwork         = "NETWORK_ERROR"
	CodeScrapeMismatch  = "SCRAPE_MISMATCH"
	CodeValidation      = "VALIDATION_ERROR"
	CodeCache           = "CACHE_ERROR"
)

type ResolveError struct {
	Message string
	Code    string
	Context map[string]any
	Cause   error
}

func (e *ResolveError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ResolveError) Unwrap() error {
	return e.Cause
}

// DataError marks a missing or unparsable dataset/cache. Callers treat
// it as "no data", never as fatal.
type DataError struct {
	*ResolveError
	Source string
}

func NewDataError(message, source string, cause error) *DataError {
	return &DataError{
		ResolveError: &ResolveError{
			Message: message,
			Code:    CodeDataUnavailable,
			Context: map[string]any{"source": source},
			Cause:   cause,
		},
		Source: source,
	}
}

// NetworkError covers timeouts, DNS failures and non-2xx responses.
type NetworkError struct {
	*ResolveError
	URL string
}

func NewNetworkError(message, url string, cause error) *NetworkError {
	return &NetworkError{
		ResolveError: &ResolveError{
			Message: message,
			Code:    CodeNetwork,
			Context: map[string]any{"url": url},
			Cause:   cause,
		},
		URL: url,
	}
}

// ScrapeError marks a successful fetch whose markup did not contain
// the expected pattern.
type ScrapeError struct {
	*ResolveError
	Page string
}

func NewScrapeError(message, page string) *ScrapeError {
	return &ScrapeError{
		ResolveError: &ResolveError{
			Message: message,
			Code:    CodeScrapeMismatch,
			Context: map[string]any{"page": page},
		},
		Page: page,
	}
}

// ValidationError is fatal for batch dataset builds only.
type ValidationError struct {
	*ResolveError
	Field string
	Value any
}

func NewValidationError(message, field string, value any) *ValidationError {
	return &ValidationError{
		ResolveError: &ResolveError{
			Message: message,
			Code:    CodeValidation,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

type CacheError struct {
	*ResolveError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		ResolveError: &ResolveError{
			Message: message,
			Code:    CodeCache,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}
