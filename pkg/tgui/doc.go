// Package tgui renders Telegram keyboards:
//   - Button: a closed set of five payload kinds (callback, url, contact, location, single value)
//   - Normalize: collapses typed buttons, wire-shaped maps and bare values into one Button
//   - ReplyKeyboard / InlineKeyboard: grids rendered to the Bot API reply_markup shape
//   - Arrange: fixed-width callback grids for pickers
package tgui
