package tgui

import "errors"

// MaxCallbackDataLen is the Bot API callback_data size limit in bytes,
// measured on the encoded string.
const MaxCallbackDataLen = 64

var ErrCallbackDataTooLong = errors.New("tgui: callback_data too long")
