// Package gmail provides the Gmail side of the triage assistant.
//
// This package offers:
//   - Inbox retrieval (unread or latest) normalized into model.Email values
//   - Plain-text body extraction from nested multipart payloads
//   - Removal of quoted reply chains and mobile signatures
//   - Saving reply drafts in the original thread
//   - Marking processed messages as read
//
// Nothing in this package sends mail. The OAuth scopes requested by the
// google package do not permit it either.
//
// Authentication:
// Clients are created from a google.TokenProvider. Tokens are loaded from the
// file system (~/.cache/inboxtriage/) and refreshed automatically.
//
// Example usage:
//
//	ctx := context.Background()
//	client, err := gmail.NewClientForAccountWithProvider(ctx, "default", provider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fetcher := &gmail.Fetcher{Client: client, Type: gmail.TypeUnread}
//	emails, err := fetcher.FetchEmails(ctx, 10)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	draftID, err := client.SaveDraft(ctx, gmail.DraftInput{
//	    To:       emails[0].SenderEmail,
//	    Subject:  gmail.ReplySubject(emails[0].Subject),
//	    Body:     "Thanks, I'll take a look.",
//	    ThreadID: emails[0].ThreadID,
//	})
package gmail
