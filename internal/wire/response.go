package wire

import (
	"bufio"
	"strconv"
	"strings"
)

// Response is a single response message. Content-Length is always rewritten
// to the byte length of Content during serialization so framing stays intact
// no matter what a caller put in the header map.
type Response struct {
	Version string
	Status  Status
	Headers map[string]string
	Content string
}

// NewResponse builds a response with the canonical version string and an
// empty body.
func NewResponse(status Status) *Response {
	return &Response{
		Version: "HTTP/1.1",
		Status:  status,
		Headers: make(map[string]string),
	}
}

// Encode serializes the response for the wire.
func (r *Response) Encode() string {
	var sb strings.Builder
	sb.WriteString(r.Version)
	sb.WriteString(" ")
	sb.WriteString(strconv.Itoa(r.Status.Code()))
	sb.WriteString(" ")
	sb.WriteString(r.Status.Reason())
	sb.WriteString("\r\n")
	r.Headers["Content-Length"] = strconv.Itoa(len(r.Content))
	for key, value := range r.Headers {
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(value)
		sb.WriteString("\r\n")
	}
	sb.WriteString("\r\n")
	sb.WriteString(r.Content)
	return sb.String()
}

// ReadResponse reads and parses one response off the stream.
func ReadResponse(r *bufio.Reader) (*Response, error) {
	raw, err := readHead(r)
	if err != nil {
		return nil, err
	}
	response, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}
	response.Content, err = readBody(r, response.Headers)
	if err != nil {
		return nil, &ProtocolError{Status: StatusBadRequest}
	}
	return response, nil
}

func parseResponse(raw []string) (*Response, error) {
	if len(raw) == 0 {
		return nil, &ProtocolError{Status: StatusBadRequest}
	}
	version, rem, found := strings.Cut(raw[0], " ")
	if !found {
		return nil, &ProtocolError{Status: StatusBadRequest}
	}
	codeStr, _, found := strings.Cut(rem, " ")
	if !found {
		return nil, &ProtocolError{Status: StatusBadRequest}
	}
	code, err := strconv.Atoi(codeStr)
	if err != nil {
		return nil, &ProtocolError{Status: StatusBadRequest}
	}
	status, ok := StatusFromCode(code)
	if !ok {
		return nil, &ProtocolError{Status: StatusBadRequest}
	}
	headers, err := parseHeaders(raw[1:])
	if err != nil {
		return nil, err
	}
	return &Response{
		Version: version,
		Status:  status,
		Headers: headers,
	}, nil
}
