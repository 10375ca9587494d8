package natsgath

import (
	"github.com/nats-io/nats.go"
)

// New creates a NATS gatherer that streams grading progress to the given
// subject.
func New(nc *nats.Conn, subject string) *natsGatherer {
	return &natsGatherer{
		nc:      nc,
		subject: subject,
	}
}
