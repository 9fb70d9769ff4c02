// Package logx configures glassbot's structured logging.
//
// Components take a logx.Logger value (zero value is a no-op) built on zerolog:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured and rotated by lumberjack
package logx
