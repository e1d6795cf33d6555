// Package logx wraps zerolog for statusbot.
//
// Console output is human-readable with a short caller. The file sink writes
// JSON lines. The Telegram sink mirrors lines at or above a minimum level into
// the operator chat, rate limited.
package logx
