package session

import "github.com/peoplematter/pmctl/internal/cli/navigate"

// Sink receives user-facing notices
type Sink interface {
	SetMessage(text string)
	SetError(text string)
}

// Report shows the outcome's notice and performs its redirect.
// Either collaborator may be nil.
func Report(out Outcome, sink Sink, nav navigate.Navigator) {
	if sink != nil {
		switch {
		case out.Failure != nil:
			sink.SetError(out.Failure.Message)
		case out.Message != "":
			sink.SetMessage(out.Message)
		}
	}

	if nav != nil && out.Redirect != nil {
		nav.NavigateTo(out.Redirect.Path, out.Redirect.Options)
	}
}
