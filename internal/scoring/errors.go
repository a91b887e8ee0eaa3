package scoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/dil-foundation/lms-web-app-sub004/internal/backend"
	"github.com/dil-foundation/lms-web-app-sub004/internal/validate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Reason classifies a SubmissionError.
type Reason string

const (
	ReasonTimeout   Reason = "timeout"
	ReasonStatus    Reason = "status"
	ReasonDecode    Reason = "decode"
	ReasonSchema    Reason = "schema"
	ReasonTransport Reason = "transport"
	ReasonCanceled  Reason = "canceled"
)

// SubmissionError is an infrastructure fault: the attempt was not scored and
// may be retried without penalty.
type SubmissionError struct {
	Reason Reason
	Status int
	Err    error
}

func (e *SubmissionError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("submission failed (%s %d): %v", e.Reason, e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("submission failed (%s): %v", e.Reason, e.Err)
	default:
		return fmt.Sprintf("submission failed (%s)", e.Reason)
	}
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// classifyTransportErr maps a transport failure onto a SubmissionError.
func classifyTransportErr(err error) *SubmissionError {
	var subErr *SubmissionError
	if errors.As(err, &subErr) {
		return subErr
	}

	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		return &SubmissionError{Reason: ReasonStatus, Status: statusErr.Status, Err: err}
	}
	var decodeErr *backend.DecodeError
	if errors.As(err, &decodeErr) {
		return &SubmissionError{Reason: ReasonDecode, Err: err}
	}
	var fieldsErr *validate.FieldsError
	if errors.As(err, &fieldsErr) {
		return &SubmissionError{Reason: ReasonSchema, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &SubmissionError{Reason: ReasonCanceled, Err: err}
	}
	if backend.IsTimeout(err) {
		return &SubmissionError{Reason: ReasonTimeout, Err: err}
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.DeadlineExceeded:
			return &SubmissionError{Reason: ReasonTimeout, Err: err}
		case codes.Canceled:
			return &SubmissionError{Reason: ReasonCanceled, Err: err}
		}
	}
	return &SubmissionError{Reason: ReasonTransport, Err: err}
}

var errMissingEvaluation = errors.New("response carries neither evaluation nor completion")
