package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CommandName is the wire name of an inbound command.
type CommandName string

const (
	// CommandAppReadyForData signals that the web app can receive data.
	CommandAppReadyForData CommandName = "AppReadyForData"
	// CommandExtensions replaces the extension allow-list.
	CommandExtensions CommandName = "Extensions"
	// CommandDetectEncoding toggles charset detection.
	CommandDetectEncoding CommandName = "DetectEncoding"
	// CommandShowTrayIcon toggles the host tray icon.
	CommandShowTrayIcon CommandName = "ShowTrayIcon"
	// CommandUseTransparency toggles host window transparency.
	CommandUseTransparency CommandName = "UseTransparency"
	// CommandRestart requests a relaunch of the host process.
	CommandRestart CommandName = "Restart"
)

// Outbound plain-string notices.
const (
	MessageUnload                  = "unload"
	MessageNewWindowRejected       = "newWindowRejected"
	MessageFrameNavigationRejected = "frameNavigationRejected"
	initDataPrefix                 = "initData:"
)

// Command is the closed set of inbound commands sent by the web app.
type Command interface {
	Name() CommandName
}

// AppReadyForData reports that the web app script runtime is initialized.
type AppReadyForData struct{}

// UpdateExtensions replaces the extension allow-list.
type UpdateExtensions struct {
	Extensions []string
}

// SetDetectEncoding persists the encoding detection preference.
type SetDetectEncoding struct {
	Enabled bool
}

// SetShowTrayIcon persists the tray icon preference.
type SetShowTrayIcon struct {
	Enabled bool
}

// SetUseTransparency persists the transparency preference.
type SetUseTransparency struct {
	Enabled bool
}

// RequestRestart asks for a relaunch of the host process.
type RequestRestart struct{}

// UnknownCommand carries a command name this build does not understand.
type UnknownCommand struct {
	Command CommandName
}

func (AppReadyForData) Name() CommandName { return CommandAppReadyForData }
func (UpdateExtensions) Name() CommandName { return CommandExtensions }
func (SetDetectEncoding) Name() CommandName { return CommandDetectEncoding }
func (SetShowTrayIcon) Name() CommandName { return CommandShowTrayIcon }
func (SetUseTransparency) Name() CommandName { return CommandUseTransparency }
func (RequestRestart) Name() CommandName { return CommandRestart }
func (c UnknownCommand) Name() CommandName { return c.Command }

type commandMessage struct {
	Command   string   `json:"command"`
	Data      []string `json:"data,omitempty"`
	BoolValue bool     `json:"boolValue,omitempty"`
}

// DecodeCommand parses a web message JSON document into a Command.
func DecodeCommand(raw []byte) (Command, error) {
	var msg commandMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	switch CommandName(msg.Command) {
	case CommandAppReadyForData:
		return AppReadyForData{}, nil
	case CommandExtensions:
		return UpdateExtensions{Extensions: msg.Data}, nil
	case CommandDetectEncoding:
		return SetDetectEncoding{Enabled: msg.BoolValue}, nil
	case CommandShowTrayIcon:
		return SetShowTrayIcon{Enabled: msg.BoolValue}, nil
	case CommandUseTransparency:
		return SetUseTransparency{Enabled: msg.BoolValue}, nil
	case CommandRestart:
		return RequestRestart{}, nil
	default:
		return UnknownCommand{Command: CommandName(msg.Command)}, nil
	}
}

// EncodeCommand renders a command in its wire form. The web app is the usual
// sender; this exists for tests and the engine shim.
func EncodeCommand(cmd Command) ([]byte, error) {
	msg := commandMessage{Command: string(cmd.Name())}
	switch c := cmd.(type) {
	case UpdateExtensions:
		msg.Data = c.Extensions
	case SetDetectEncoding:
		msg.BoolValue = c.Enabled
	case SetShowTrayIcon:
		msg.BoolValue = c.Enabled
	case SetUseTransparency:
		msg.BoolValue = c.Enabled
	}
	return json.Marshal(msg)
}

// InitData is sent once the web app reports readiness.
type InitData struct {
	LangCode        string `json:"langCode"`
	DetectEncoding  bool   `json:"detectEncoding"`
	ShowTrayIcon    bool   `json:"showTrayIcon"`
	UseTransparency bool   `json:"useTransparency"`
}

// Message renders the init data as the "initData:<json>" string message.
func (d InitData) Message() (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return initDataPrefix + string(data), nil
}

// ParseInitData is the inverse of InitData.Message.
func ParseInitData(msg string) (InitData, error) {
	rest, ok := strings.CutPrefix(msg, initDataPrefix)
	if !ok {
		return InitData{}, fmt.Errorf("%w: missing %q prefix", ErrInvalidMessage, initDataPrefix)
	}
	var d InitData
	if err := json.Unmarshal([]byte(rest), &d); err != nil {
		return InitData{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return d, nil
}

// FileData is the JSON sidecar posted together with the shared buffer.
// TextContent is empty for binary payloads; for text payloads the buffer is a
// one byte placeholder and must be ignored by the receiver.
type FileData struct {
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	IsBinary    bool   `json:"isBinary"`
	TextContent string `json:"textContent"`
}
