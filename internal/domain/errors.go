package domain

import "errors"

var (
	ErrTransport          = errors.New("transport error")
	ErrTimeout            = errors.New("request timed out")
	ErrApplication        = errors.New("application error")
	ErrUnauthorized       = errors.New("authentication failed, please login again")
	ErrForbidden          = errors.New("access denied, missing permission for this action")
	ErrDecode             = errors.New("failed to decode response")
	ErrInvalidMap         = errors.New("invalid custom map")
	ErrMatchmakingTimeout = errors.New("matchmaking timeout, please try again")
	ErrJoinQueue          = errors.New("failed to join matchmaking queue")
)
