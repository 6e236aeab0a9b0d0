package webhooks

import "strings"

const (
	StatusSuccess = "success"
	StatusError   = "error"

	SuccessMessage = "Webhook processed successfully"
)

// Response is the body returned for every delivery. It does not separate a
// processed event from a recognized no-op.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func SuccessResponse() Response {
	return Response{Status: StatusSuccess, Message: SuccessMessage}
}

func ErrorResponse(err error) Response {
	message := "webhook processing failed"
	if err != nil {
		if text := strings.TrimSpace(err.Error()); text != "" {
			message = text
		}
	}
	return Response{Status: StatusError, Message: message}
}

func (r Response) OK() bool {
	return r.Status == StatusSuccess
}
