package contract

import "errors"

var (
	ErrModelInvoke = errors.New("model invoke failed")
	ErrToolInvoke  = errors.New("tool invoke failed")
	ErrUnknownTool = errors.New("unknown tool requested")
	ErrValidation  = errors.New("validation failed")
)
