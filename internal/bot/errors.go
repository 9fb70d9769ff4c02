package bot

import "errors"

var (
	// ErrInvalidArgument reports misuse of the registration API.
	ErrInvalidArgument = errors.New("bot: invalid argument")
	// ErrExistingItem is returned when a handler key is registered twice.
	// Use the Replace* methods to overwrite on purpose.
	ErrExistingItem = errors.New("bot: item already exists")
	// ErrInvalidLanguage is returned for an empty language key.
	ErrInvalidLanguage = errors.New("bot: invalid language")
)
