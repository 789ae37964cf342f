package schema

import "errors"

var (
	// ErrInvalidMessage indicates an inbound web message that is not a command object.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrNotReady indicates an outbound message was attempted before the web app signalled readiness.
	ErrNotReady = errors.New("web app not ready")
	// ErrEngineUnavailable indicates the browser engine is missing or too old.
	ErrEngineUnavailable = errors.New("browser engine unavailable")
	// ErrEngineClosed indicates the browser engine has been torn down.
	ErrEngineClosed = errors.New("browser engine closed")
	// ErrPanelDisposed indicates the panel was disposed.
	ErrPanelDisposed = errors.New("panel disposed")
	// ErrBufferClosed indicates a shared buffer was used after release.
	ErrBufferClosed = errors.New("shared buffer closed")
	// ErrNotHandled indicates the plugin does not handle the file type.
	ErrNotHandled = errors.New("file type not handled")
)
