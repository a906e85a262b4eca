package gateway

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mcdev12/pomodoro/go/internal/models"
)

// Command names accepted in the "command" field.
const (
	CommandStart         = "start"
	CommandPause         = "pause"
	CommandResume        = "resume"
	CommandStatus        = "status"
	CommandMyConfig      = "myconfig"
	CommandResetProgress = "reset_progress"
	CommandResetConfig   = "reset_config"
	CommandUpdateConfig  = "update_config"
	CommandTest          = "test"
	CommandHelp          = "help"
	CommandBlock         = "block"
	CommandUnblock       = "unblock"
	CommandListBlocked   = "list_blocked"
)

var knownCommands = map[string]string{}

func init() {
	for _, name := range []string{
		CommandStart, CommandPause, CommandResume, CommandStatus, CommandMyConfig,
		CommandResetProgress, CommandResetConfig, CommandUpdateConfig, CommandTest,
		CommandHelp, CommandBlock, CommandUnblock, CommandListBlocked,
	} {
		knownCommands[squash(name)] = name
	}
}

// squash folds the accepted spellings (reset_progress, resetprogress,
// Reset-Progress) onto one key.
func squash(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("_", "", "-", "").Replace(name)
}

// Request is one client command.
type Request struct {
	Command   string                `json:"command"`
	RequestID string                `json:"request_id,omitempty"`
	URL       string                `json:"url,omitempty"`
	NewConfig *models.SessionConfig `json:"new_config,omitempty"`
}

// MalformedCommandError is returned for payloads that do not decode into a known command.
type MalformedCommandError struct {
	Err error
}

func (e *MalformedCommandError) Error() string {
	return fmt.Sprintf("malformed command: %v", e.Err)
}

func (e *MalformedCommandError) Unwrap() error {
	return e.Err
}

// ParseRequest decodes raw and resolves the command name to its canonical form.
// The request ID is returned even when the command is rejected.
func ParseRequest(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, &MalformedCommandError{Err: err}
	}
	if req.Command == "" {
		return req, &MalformedCommandError{Err: fmt.Errorf("missing command field")}
	}

	canonical, ok := knownCommands[squash(req.Command)]
	if !ok {
		return req, &MalformedCommandError{Err: fmt.Errorf("unknown command %q", req.Command)}
	}
	req.Command = canonical

	switch canonical {
	case CommandBlock, CommandUnblock:
		if strings.TrimSpace(req.URL) == "" {
			return req, &MalformedCommandError{Err: fmt.Errorf("%s requires a url", canonical)}
		}
	case CommandUpdateConfig:
		if req.NewConfig == nil {
			return req, &MalformedCommandError{Err: fmt.Errorf("%s requires new_config", canonical)}
		}
	}
	return req, nil
}

// ResponseType discriminates the response payload.
type ResponseType string

const (
	ResponseMessage ResponseType = "Message"
	ResponseStatus  ResponseType = "Status"
	ResponseError   ResponseType = "Error"
	ResponseHelp    ResponseType = "Help"
	ResponseList    ResponseType = "List"
)

// Response is sent for every command and for every broadcast.
type Response struct {
	Type      ResponseType `json:"type"`
	Data      any          `json:"data"`
	RequestID string       `json:"request_id,omitempty"`
}

// StatusData is the session config flattened together with the blocked sites.
type StatusData struct {
	models.SessionConfig
	BlockedURLs []string `json:"blocked_urls,omitempty"`
}

func MessageResponse(text string) Response {
	return Response{Type: ResponseMessage, Data: text}
}

func ErrorResponse(err error) Response {
	return Response{Type: ResponseError, Data: err.Error()}
}

func StatusResponse(cfg models.SessionConfig, blocked []string) Response {
	return Response{Type: ResponseStatus, Data: StatusData{SessionConfig: cfg, BlockedURLs: blocked}}
}

func ListResponse(items []string) Response {
	if items == nil {
		items = []string{}
	}
	return Response{Type: ResponseList, Data: items}
}

const helpText = `Available commands (JSON, field "command"):
  { "command": "start" }                          Start the session
  { "command": "pause" }                          Pause the countdown
  { "command": "resume" }                         Resume a paused session
  { "command": "status" }                         Current session state
  { "command": "myconfig" }                       Where the config is stored
  { "command": "reset_progress" }                 Back to the first work phase
  { "command": "reset_config" }                   Restore default settings
  { "command": "update_config", "new_config": {} } Replace the whole config
  { "command": "block", "url": "example.com" }    Block a site during work
  { "command": "unblock", "url": "example.com" }  Stop blocking a site
  { "command": "list_blocked" }                   List blocked sites
  { "command": "test" }                           Play the test sound
  { "command": "help" }                           This text
Add "request_id" to match replies to requests.`

func HelpResponse() Response {
	return Response{Type: ResponseHelp, Data: helpText}
}
