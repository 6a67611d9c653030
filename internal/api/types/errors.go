package types

import appErr "github.com/hhi-dashboard/api/pkg/errors"

// FromAppError builds the failure envelope and HTTP status for err.
// Internal errors never leak their cause.
func FromAppError(err error) (int, APIResponse) {
	status := appErr.HTTPStatus(err)
	code := appErr.CodeOf(err)
	msg := appErr.MessageOf(err)
	if code == appErr.CodeUnknown {
		code = appErr.CodeInternal
		msg = "internal server error"
	}
	return status, APIResponse{Success: false, Error: msg, Code: string(code)}
}

func Fail(code appErr.Code, msg string) APIResponse {
	return APIResponse{Success: false, Error: msg, Code: string(code)}
}
