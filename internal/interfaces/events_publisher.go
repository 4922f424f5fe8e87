package interfaces

// EventPublisher delivers domain events to interested consumers.
type EventPublisher interface {
	Publish(topic string, event any) error
}
