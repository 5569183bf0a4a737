package types

// Code is the stable, machine readable outcome of a command.
type Code string

const (
	CodeOK            Code = "OK"
	CodeReqParamError Code = "REQ_PARAM_ERROR"
	CodeRejected      Code = "REJECTED"
	CodeRosterFull    Code = "ROSTER_FULL"
	CodeUnknownAction Code = "UNKNOWN_ACTION"
	CodeRateLimited   Code = "RATE_LIMITED"
)

var codeMessages = map[Code]string{
	CodeOK:            "ok",
	CodeReqParamError: "invalid request parameters",
	CodeRejected:      "command rejected",
	CodeRosterFull:    "world is full",
	CodeUnknownAction: "unknown action",
	CodeRateLimited:   "too many commands",
}

func (c Code) Message() string {
	if m, ok := codeMessages[c]; ok {
		return m
	}
	return string(c)
}

// HTTPStatus maps a code onto the status the HTTP surface answers with.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeOK:
		return 200
	case CodeReqParamError, CodeUnknownAction:
		return 400
	case CodeRejected, CodeRosterFull:
		return 409
	case CodeRateLimited:
		return 429
	default:
		return 500
	}
}

type Response struct {
	Action  string `json:"action,omitempty"`
	Request string `json:"request,omitempty"` // echoed action for websocket replies
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func NewResponse(code Code, data any) Response {
	return Response{Code: code, Message: code.Message(), Data: data}
}

// WithDetail replaces the generic message, e.g. with a validation error.
func (r Response) WithDetail(msg string) Response {
	r.Message = msg
	return r
}
