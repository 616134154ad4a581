package usecase

import "fmt"

type ErrorCode string

const (
	ErrorInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrorUnauthenticated  ErrorCode = "UNAUTHENTICATED"
	ErrorQuotaCheckFailed ErrorCode = "QUOTA_CHECK_FAILED"
	ErrorQuotaExceeded    ErrorCode = "QUOTA_EXCEEDED"
	ErrorGenerationFailed ErrorCode = "GENERATION_FAILED"
	ErrorInternal         ErrorCode = "INTERNAL_ERROR"
)

// User-facing copy returned to the app for each failure code.
const (
	MessageLoginRequired    = "로그인이 필요한 기능입니다."
	MessageQuotaCheckFailed = "사용량을 확인하는 중 오류가 발생했습니다."
	MessageQuotaExceeded    = "오늘의 AI 예문 생성 횟수를 모두 사용했습니다. 내일 다시 시도해주세요."
	MessageGenerationFailed = "AI 예문 생성에 실패했습니다. 잠시 후 다시 시도해주세요."
	MessageInvalidInput     = "요청 형식이 올바르지 않습니다."
	MessageInternal         = "요청을 처리하는 중 오류가 발생했습니다."
)

var userMessages = map[ErrorCode]string{
	ErrorInvalidInput:     MessageInvalidInput,
	ErrorUnauthenticated:  MessageLoginRequired,
	ErrorQuotaCheckFailed: MessageQuotaCheckFailed,
	ErrorQuotaExceeded:    MessageQuotaExceeded,
	ErrorGenerationFailed: MessageGenerationFailed,
	ErrorInternal:         MessageInternal,
}

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UserMessage returns the fixed copy shown to the end user for this error.
func (e *Error) UserMessage() string {
	if e == nil {
		return ""
	}
	if msg, ok := userMessages[e.Code]; ok {
		return msg
	}
	return MessageInternal
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
