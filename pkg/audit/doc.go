// Package audit records security relevant events: logins, logouts, token
// refreshes and changes to roles, menus and departments.
//
// Events are written through the Logger interface. LogrusLogger emits them as
// structured JSON entries tagged audit=true so they can be routed to a
// separate sink; NoopLogger discards them.
//
//	auditor := audit.NewLogrusLogger(logrus.StandardLogger())
//	auditor.LogAuthentication(ctx, audit.EventTypeAuthLogin, &userID, masked, audit.EventStatusSuccess, "login")
//
// Request id, client address and acting user id are taken from the context
// when the event does not carry them.
package audit
