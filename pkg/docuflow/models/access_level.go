package models

// AccessLevel is a document access grade, ordered from none to owner. Approval
// steps declare the minimum level an approver must hold.
type AccessLevel string

const (
	AccessNone      AccessLevel = "none"
	AccessViewer    AccessLevel = "viewer"
	AccessCommenter AccessLevel = "commenter"
	AccessEditor    AccessLevel = "editor"
	AccessOwner     AccessLevel = "owner"
)

func (a AccessLevel) Rank() int {
	switch a {
	case AccessViewer:
		return 1
	case AccessCommenter:
		return 2
	case AccessEditor:
		return 3
	case AccessOwner:
		return 4
	}
	return 0
}

// AtLeast reports whether this level satisfies the required one.
func (a AccessLevel) AtLeast(required AccessLevel) bool {
	return a.Rank() >= required.Rank()
}

// DocumentStatus mirrors the document lifecycle managed by the document store.
// Processor steps may push a document to a new status on success.
type DocumentStatus string

const (
	DocumentDraft     DocumentStatus = "draft"
	DocumentReview    DocumentStatus = "review"
	DocumentApproved  DocumentStatus = "approved"
	DocumentPublished DocumentStatus = "published"
	DocumentArchived  DocumentStatus = "archived"
)
