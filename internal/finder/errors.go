package finder

import "errors"

// Stage errors. Each find failure wraps exactly one of these together with
// the underlying cause.
var (
	ErrUnsupportedMode = errors.New("unsupported find mode")
	ErrConfig          = errors.New("invalid find configuration")
	ErrSettings        = errors.New("driver settings failed")
	ErrEnumerate       = errors.New("element enumeration failed")
	ErrScreenshot      = errors.New("screenshot failed")
	ErrDetect          = errors.New("object detection failed")
	ErrInference       = errors.New("element inference failed")
	ErrRegister        = errors.New("image element registration failed")
)
