package engine

import (
	"fmt"
	"time"
)

// InputError reports invalid analysis input. It is fatal and raised before
// any network activity.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Field, e.Reason)
}

// ChannelNotFoundError reports a channel that does not exist or was
// terminated.
type ChannelNotFoundError struct {
	Identity string
}

func (e *ChannelNotFoundError) Error() string {
	return fmt.Sprintf("channel not found: %s", e.Identity)
}

// PrivateChannelError reports a channel that exists but is not public.
type PrivateChannelError struct {
	Identity string
}

func (e *PrivateChannelError) Error() string {
	return fmt.Sprintf("channel is private: %s", e.Identity)
}

// ThrottledError is returned when the rate limiter's configured maximum
// wait would be exceeded. With no maximum configured the limiter waits
// instead of failing.
type ThrottledError struct {
	Wait time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("rate limit exceeded, next window in %s", e.Wait.Round(time.Millisecond))
}

// ParseWarning records a scraped field that could not be parsed. The field
// keeps its default value and the warning is collected on the result
// instead of failing the run.
type ParseWarning struct {
	Field string `json:"field"`
	Raw   string `json:"raw"`
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("%s: unparseable %q", w.Field, w.Raw)
}
