package outbox

// Event is the domain event envelope written to the outbox table. The Kafka
// topic name equals EventType (one event per topic).
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// Topics emitted by the availability service.
const (
	TopicSlotCreated = "availability.slot.created.v1"
	TopicSlotRemoved = "availability.slot.removed.v1"
)
