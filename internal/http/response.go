package http

type Status string

const (
	// StatusOK is used for health-check responses.
	StatusOK Status = "OK"

	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Response is the JSON body of every /health and /api reply.
type Response struct {
	Status    Status `json:"status,omitempty"`
	Value     string `json:"value,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func NewOKResponse() Response {
	return Response{Status: StatusOK}
}

func NewSuccessResponse() Response {
	return Response{Status: StatusSuccess}
}

// NewValueResponse carries the stored bytes as a JSON string; invalid
// UTF-8 is replaced by the encoder.
func NewValueResponse(value []byte) Response {
	return Response{Status: StatusSuccess, Value: string(value)}
}

func NewErrorResponse(err string) Response {
	return Response{Status: StatusError, Error: err}
}

// WithRequestID tags a response so a failing call can be matched to the log.
func (r Response) WithRequestID(id string) Response {
	r.RequestID = id
	return r
}
