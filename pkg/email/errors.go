package email

import "errors"

var (
	errEmptyRecipients = errors.New("email: recipient list is empty")
	errMissingSubject  = errors.New("email: subject is required")
	errMissingBody     = errors.New("email: text content is required")
)
