package outbox

// Change-feed topics. The Kafka topic name equals EventType, one event kind
// per topic.
const (
	TopicAppointmentChanged   = "appointment.changed.v1"
	TopicBusinessHoursChanged = "business_hours.changed.v1"
)

// Event is the envelope written to the outbox table inside the same
// transaction as the row change it describes.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}
