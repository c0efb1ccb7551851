package event

import "github.com/google/go-github/v75/github"

// GenericCommentEvent is the normalized view shared by the three
// comment-shaped webhooks (issue_comment, pull_request_review,
// pull_request_review_comment). Downstream plugins mostly want "a comment
// body plus whatever issue/PR/review context accompanies it" regardless
// of which webhook produced it, so all three funnel into this one shape.
type GenericCommentEvent struct {
	Action  string
	Body    string
	HTMLURL string
	User    string

	// Number is the issue or pull request number the comment belongs to.
	Number int
	IsPR   bool

	Repo        *github.Repository
	Issue       *github.Issue
	PullRequest *github.PullRequest
	Review      *github.PullRequestReview
}

// GenericCommentFromIssueComment normalizes an issue_comment event.
// GitHub delivers PR conversation comments as issue comments, so IsPR
// comes from the issue's pull-request linkage.
func GenericCommentFromIssueComment(ev *github.IssueCommentEvent) *GenericCommentEvent {
	return &GenericCommentEvent{
		Action:  ev.GetAction(),
		Body:    ev.GetComment().GetBody(),
		HTMLURL: ev.GetComment().GetHTMLURL(),
		User:    ev.GetComment().GetUser().GetLogin(),
		Number:  ev.GetIssue().GetNumber(),
		IsPR:    ev.GetIssue().IsPullRequest(),
		Repo:    ev.GetRepo(),
		Issue:   ev.GetIssue(),
	}
}

// GenericCommentFromReview normalizes a pull_request_review event; the
// review body stands in for the comment body.
func GenericCommentFromReview(ev *github.PullRequestReviewEvent) *GenericCommentEvent {
	return &GenericCommentEvent{
		Action:      ev.GetAction(),
		Body:        ev.GetReview().GetBody(),
		HTMLURL:     ev.GetReview().GetHTMLURL(),
		User:        ev.GetReview().GetUser().GetLogin(),
		Number:      ev.GetPullRequest().GetNumber(),
		IsPR:        true,
		Repo:        ev.GetRepo(),
		PullRequest: ev.GetPullRequest(),
		Review:      ev.GetReview(),
	}
}

// GenericCommentFromReviewComment normalizes a pull_request_review_comment event.
func GenericCommentFromReviewComment(ev *github.PullRequestReviewCommentEvent) *GenericCommentEvent {
	return &GenericCommentEvent{
		Action:      ev.GetAction(),
		Body:        ev.GetComment().GetBody(),
		HTMLURL:     ev.GetComment().GetHTMLURL(),
		User:        ev.GetComment().GetUser().GetLogin(),
		Number:      ev.GetPullRequest().GetNumber(),
		IsPR:        true,
		Repo:        ev.GetRepo(),
		PullRequest: ev.GetPullRequest(),
	}
}
