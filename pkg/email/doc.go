// Package email delivers transactional client messages such as
// appointment reminders and birthday greetings.
//
// The package exposes a small Sender interface with a Postmark-backed
// implementation for production and a NoopSender for development.
// Handlers depend only on the interface, so tests substitute fakes
// without network access.
//
// Usage:
//
//	sender, err := email.NewPostmarkSender(email.Config{
//		PostmarkServerToken:  "server-token",
//		PostmarkAccountToken: "account-token",
//		SenderEmail:          "studio@glowdesk.app",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	err = sender.Send(ctx, email.Message{
//		To:      "client@example.com",
//		Subject: "Appointment reminder",
//		Body:    "See you tomorrow at 14:00.",
//		Tag:     "reminder",
//	})
package email
