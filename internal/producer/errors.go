package producer

import "fmt"

// PublishError reports a failed publish to the event log. The send is not
// retried here; the caller surfaces the failure to the sender.
type PublishError struct {
	Topic string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to topic %s failed: %v", e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
