package protocol

// ErrorCode classifies an ERROR message
type ErrorCode uint16

const (
	CodeInternal           ErrorCode = 0
	CodeBadRequest         ErrorCode = 1
	CodeNotAuthenticated   ErrorCode = 2
	CodeInvalidCredentials ErrorCode = 3
	CodeUsernameTaken      ErrorCode = 4
	CodeNotFound           ErrorCode = 5
	CodeConflict           ErrorCode = 6
)

func (c ErrorCode) String() string {
	switch c {
	case CodeBadRequest:
		return "BAD_REQUEST"
	case CodeNotAuthenticated:
		return "NOT_AUTHENTICATED"
	case CodeInvalidCredentials:
		return "INVALID_CREDENTIALS"
	case CodeUsernameTaken:
		return "USERNAME_TAKEN"
	case CodeNotFound:
		return "NOT_FOUND"
	case CodeConflict:
		return "CONFLICT"
	default:
		return "INTERNAL"
	}
}
