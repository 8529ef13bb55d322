package constants

// Common error messages
const (
	ErrInvalidSession     = "Your session has expired or is invalid. Please login again"
	ErrMissingToken       = "Missing or invalid bearer token"
	ErrInvalidJSON        = "Invalid JSON"
	ErrInvalidRequestBody = "Invalid request body"
	ErrDB                 = "DB error"
	ErrMethodNotAllowed   = "Method Not Allowed"
	ErrNotFound           = "Not found"
)

// JSON envelope keys
const (
	KeySuccess = "success"
	KeyError   = "error"
	KeyData    = "data"
)

// Content Types
const (
	HeaderContentType = "Content-Type"
	ContentTypeJSON   = "application/json"
)

// Date formats
const (
	DateFormat     = "2006-01-02"
	MonthFormat    = "2006-01"
	DateTimeFormat = "2006-01-02 15:04:05"
)
