package domain

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"shopdesk/errors"
)

var validate = validator.New()

// ValidateSend rejects a send command before any store call is made.
// A body that is empty once trimmed is the most common caller mistake
// and gets its own sentinel.
func ValidateSend(cmd SendMessageCommand) error {
	if strings.TrimSpace(cmd.Body) == "" {
		return errors.ErrEmptyMessageBody
	}
	return validate.Struct(cmd)
}

// ValidateBroadcast checks a system broadcast request. Kind accepts the
// fixed set as well as free-form custom tags, so only emptiness is
// rejected.
func ValidateBroadcast(cmd BroadcastCommand) error {
	return validate.Struct(cmd)
}
