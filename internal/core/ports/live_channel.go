package ports

// Signal is a pure invalidation notification: the backend state changed, with
// no payload beyond the topic it arrived on. Consumers re-fetch authoritative
// state; Reconnected signals are delivered after every transport reconnect
// because messages missed while disconnected are never redelivered.
type Signal struct {
	Topic       string
	Reconnected bool
}

// LiveChannel is a topic-based push subscription over a single shared
// transport connection.
type LiveChannel interface {
	// Subscribe registers a handler for a topic and returns an unsubscribe
	// function. The first subscription establishes the transport connection;
	// unsubscribing the last consumer tears it down. Handlers for one topic
	// run in delivery order; there is no ordering across reconnects.
	Subscribe(topic string, fn func(Signal)) (func(), error)

	// Close tears down the transport and all subscriptions.
	Close() error
}
