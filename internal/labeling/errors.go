package labeling

import "errors"

var (
	// ErrUnauthenticated is returned when a submission is attempted without a signed-in user.
	ErrUnauthenticated = errors.New("please sign in before submitting")
	// ErrItemNotReady is returned when the current item is missing its image references.
	ErrItemNotReady = errors.New("images not loaded properly, please try again")
	// ErrNoChoice is returned when nothing has been selected.
	ErrNoChoice = errors.New("please select an option")
	// ErrUnknownChoice is returned for a label that is not on offer.
	ErrUnknownChoice = errors.New("unknown option")
	// ErrWrongPhase is returned when an action does not apply to the current phase.
	ErrWrongPhase = errors.New("action not available in this phase")
	// ErrBusy is returned while another request for the same session is outstanding.
	ErrBusy = errors.New("a request is already in progress")
	// ErrSessionClosed is returned once the owning view has been torn down.
	ErrSessionClosed = errors.New("session closed")
	// ErrFetchFailed wraps failures retrieving a new item.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrSubmitFailed wraps failures posting a label.
	ErrSubmitFailed = errors.New("submission failed")
)
