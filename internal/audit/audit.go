package audit

import (
	"context"

	"github.com/fikri221/linking-up/pkg/log"
)

// Audit actions.
const (
	ActionSignUp         = "user.signup"
	ActionLogin          = "user.login"
	ActionLoginFailed    = "user.login_failed"
	ActionChangePassword = "user.change_password"
	ActionAddMessage     = "message.add"
	ActionEditMessage    = "message.edit"
	ActionDeleteMessage  = "message.delete"
	ActionMarkRead       = "message.mark_read"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, userID string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, userID string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUserID, userID).
		Str(FieldDetail, detail).
		Msg(msg)
}
