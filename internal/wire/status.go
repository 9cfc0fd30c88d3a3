package wire

import "strconv"

// Status is the closed set of response codes the protocol speaks. The
// numeric values are the HTTP codes themselves so the mapping is
// bidirectional by construction.
type Status int

const (
	StatusOK                      Status = 200
	StatusNoContent               Status = 204
	StatusBadRequest              Status = 400
	StatusNotFound                Status = 404
	StatusMethodNotAllowed        Status = 405
	StatusConflict                Status = 409
	StatusInternalServerError     Status = 500
	StatusHTTPVersionNotSupported Status = 505
)

// StatusFromCode maps a numeric code back into the closed set. The second
// return value is false for codes outside the taxonomy.
func StatusFromCode(code int) (Status, bool) {
	switch Status(code) {
	case StatusOK, StatusNoContent, StatusBadRequest, StatusNotFound,
		StatusMethodNotAllowed, StatusConflict, StatusInternalServerError,
		StatusHTTPVersionNotSupported:
		return Status(code), true
	}
	return 0, false
}

// Code returns the numeric form of the status.
func (s Status) Code() int {
	return int(s)
}

// Reason returns the reason phrase used on the status line.
func (s Status) Reason() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusNoContent:
		return "No Content"
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Not Found"
	case StatusMethodNotAllowed:
		return "Method Not Allowed"
	case StatusConflict:
		return "Conflict"
	case StatusInternalServerError:
		return "Internal Server Error"
	case StatusHTTPVersionNotSupported:
		return "HTTP Version Not Supported"
	}
	return strconv.Itoa(int(s))
}

// ProtocolError carries the status a parse failure should be answered with.
type ProtocolError struct {
	Status Status
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Status.Reason()
}
