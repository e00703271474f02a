package httpapi

// Result is the response envelope of every JSON endpoint.
//   - code: ResultSuccess (2000) or ResultError
//   - type: "success" | "error"
//   - kind: error taxonomy label, errors only
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

// FailKind is Fail tagged with an error kind.
func FailKind(kind, message string) Result[any] {
	r := Fail(message)
	r.Kind = kind
	return r
}
