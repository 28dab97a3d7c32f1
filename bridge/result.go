package bridge

import "fmt"

// FailureKind identifies why a command failed.
type FailureKind string

const (
	// FailureNativeException covers driver faults and panics.
	FailureNativeException FailureKind = "NATIVE_EXCEPTION"
	// FailureNotImplemented is returned for unknown command names.
	FailureNotImplemented FailureKind = "NOT_IMPLEMENTED"
)

// Failure is the error half of a Result.
type Failure struct {
	Kind    FailureKind
	Message string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Result is the outcome of one command: a Value on success or a Failure,
// never both. Note optionally explains a false or empty Value.
type Result struct {
	Value   any
	Failure *Failure
	Note    string
}

// OK reports whether the command succeeded.
func (r Result) OK() bool {
	return r.Failure == nil
}

// IsNotImplemented reports whether the command name was unknown.
func (r Result) IsNotImplemented() bool {
	return r.Failure != nil && r.Failure.Kind == FailureNotImplemented
}

// Success wraps v as a successful Result.
func Success(v any) Result {
	return Result{Value: v}
}

// SuccessWithNote wraps v with a diagnostic note.
func SuccessWithNote(v any, note string) Result {
	return Result{Value: v, Note: note}
}

// NativeException converts a driver fault or recovered panic value.
func NativeException(cause any) Result {
	return Result{Failure: &Failure{
		Kind:    FailureNativeException,
		Message: fmt.Sprintf("Native exception: %v", cause),
	}}
}

// NotImplemented reports an unknown command.
func NotImplemented(name string) Result {
	return Result{Failure: &Failure{
		Kind:    FailureNotImplemented,
		Message: fmt.Sprintf("command %q is not implemented", name),
	}}
}
