// Package logx configures rankbot's structured logging.
//
// Every process (supervisor and workers) builds one logx.Service from the
// shared config. The wrapper keeps:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - Optional Telegram sink for warn+ lines (min-level + rate limiting)
package logx
