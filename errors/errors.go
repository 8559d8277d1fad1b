package errors

import "fmt"

var (
	ErrWorkerPanic          = fmt.Errorf("worker panic")
	ErrEmptyMessageBody     = fmt.Errorf("message body is empty")
	ErrConversationNotFound = fmt.Errorf("conversation not found")
	ErrNotificationNotFound = fmt.Errorf("notification not found")
	ErrFeedDetached         = fmt.Errorf("feed is detached")
	ErrFeedAttached         = fmt.Errorf("feed is already attached")
	ErrUnknownKind          = fmt.Errorf("unknown conversation kind")
	ErrMissingCustomer      = fmt.Errorf("no participant holds the customer role")
	ErrEmptyWords           = fmt.Errorf("no words have been found")
)
