package mail

import (
	"errors"
	"fmt"
)

const (
	// StatusSent is the terminal status of a delivered message. Any other
	// status means delivery failed.
	StatusSent = "Successfully Sent"
	// StatusNone is the status before any attempt ran.
	StatusNone = "N/A"
)

// statusFor renders the human-readable status for a failed step.
func statusFor(stage Stage, err error) string {
	var cmd *CommandError
	isCmd := errors.As(err, &cmd)

	switch stage {
	case StageConnect:
		if isCmd {
			return fmt.Sprintf("Error trying to connect: %s StatusCode: %d", cmd.Message, cmd.Code)
		}
		return fmt.Sprintf("Protocol error while trying to connect: %s", err)
	case StageAuthenticate:
		if errors.Is(err, ErrInvalidCredentials) {
			return fmt.Sprintf("Invalid user name or password. Message Not Sent. %s", errorText(err))
		}
		if isCmd {
			return fmt.Sprintf("Error trying to authenticate: %s StatusCode: %d", cmd.Message, cmd.Code)
		}
		return fmt.Sprintf("Protocol error while trying to authenticate: %s", err)
	default:
		if isCmd {
			kind := cmd.Kind
			if kind == "" {
				kind = UnexpectedStatusCode
			}
			return fmt.Sprintf("Error sending message: %s StatusCode: %d ErrorCode: %s", cmd.Message, cmd.Code, kind)
		}
		return fmt.Sprintf("Protocol error while sending message: %s", err)
	}
}

// errorText prefers the server's reply text over the wrapped error string.
func errorText(err error) string {
	var cmd *CommandError
	if errors.As(err, &cmd) {
		return cmd.Message
	}
	return err.Error()
}
