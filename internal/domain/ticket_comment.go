package domain

import "time"

// Comment is a message in a ticket thread. TicketID and AuthorID never change after creation.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Text      string
	CreatedAt time.Time
}

// CommentView is a comment with its author resolved.
type CommentView struct {
	Comment
	Author UserSummary
}
