package conversion

import "context"

// Gateway is the remote side of the workflow.
type Gateway interface {
	FetchPendingLoanWaybills(ctx context.Context, parentDocID string) (PendingLoans, error)
	CreateConversionDocument(ctx context.Context, parentDocID, loanWaybillID string, lines []ConversionLine) (string, error)
}

// Severity of a notice.
type Severity int

const (
	SeverityNeutral Severity = iota
	SeverityWarning
	SeverityError
	SeveritySuccess
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeveritySuccess:
		return "success"
	}
	return "neutral"
}

// Notice is a message for the user. Blocking notices stay until dismissed;
// the others auto-dismiss.
type Notice struct {
	Severity Severity
	Message  string
	Blocking bool
}

// Notifier displays notices.
type Notifier interface {
	Notify(n Notice)
}

// Navigator routes the user to a document.
type Navigator interface {
	Navigate(doctype, name string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(doctype, name string)

func (f NavigatorFunc) Navigate(doctype, name string) { f(doctype, name) }
