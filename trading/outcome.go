package trading

import (
	"errors"

	"github.com/rustyeddy/propfirm/challenge"
)

// CodeInternal is reported for failures that are not rejections.
const CodeInternal challenge.Code = "INTERNAL_ERROR"

// Response is the single-value form of a SubmitTrade result.
type Response struct {
	Trade     *challenge.Trade     `json:"trade,omitempty"`
	Challenge *challenge.Challenge `json:"challenge,omitempty"`
	ErrorCode challenge.Code       `json:"errorCode,omitempty"`
	Message   string               `json:"message,omitempty"`
}

func (r Response) OK() bool { return r.ErrorCode == "" }

// Outcome folds a SubmitTrade return pair into one Response.
func Outcome(res TradeResult, err error) Response {
	if err == nil {
		return Response{Trade: &res.Trade, Challenge: &res.Challenge}
	}
	var re *challenge.RejectError
	if errors.As(err, &re) {
		return Response{ErrorCode: re.Code, Message: re.Message}
	}
	return Response{ErrorCode: CodeInternal, Message: err.Error()}
}
