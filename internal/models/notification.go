package models

// Notification is the payload handed to the notification sink. Delivery
// guarantees are the sink's responsibility; the engine fires and forgets.
type Notification struct {
	CorrelationID string `json:"correlation_id"`
	Title         string `json:"title"`
	Body          string `json:"body"`
}
