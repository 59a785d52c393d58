//go:build !cgo

package onnx

// Init always fails: ONNX Runtime needs cgo.
func Init(string) error {
	return ErrRuntimeUnavailable
}

// Shutdown is a no-op without cgo.
func Shutdown() error {
	return nil
}

// Available reports false without cgo.
func Available() bool {
	return false
}

func newSession(Options) (session, error) {
	return nil, ErrRuntimeUnavailable
}
