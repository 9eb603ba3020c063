// Package mail renders and delivers one-time code emails. SMTPSender talks to
// a real mail server; LogSender writes codes to a zap logger for local
// development. Both implement goIdentity.Mailer.
package mail
