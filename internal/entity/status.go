package entity

import "fmt"

// OrderStatus enumerates the order lifecycle states.
type OrderStatus string

const (
	StatusNew            OrderStatus = "new"
	StatusValidated      OrderStatus = "validated"
	StatusInvoiceCreated OrderStatus = "invoice_created"
	StatusPaid           OrderStatus = "paid"
	StatusOrderCreated1C OrderStatus = "order_created_1c"
	StatusTrackingIssued OrderStatus = "tracking_issued"
	StatusShipped        OrderStatus = "shipped"
	StatusCancelled      OrderStatus = "cancelled"
)

// statusTransitions is the adjacency map of legal lifecycle moves.
// shipped and cancelled are terminal.
var statusTransitions = map[OrderStatus][]OrderStatus{
	StatusNew:            {StatusValidated, StatusCancelled},
	StatusValidated:      {StatusInvoiceCreated, StatusCancelled},
	StatusInvoiceCreated: {StatusPaid, StatusCancelled},
	StatusPaid:           {StatusOrderCreated1C, StatusCancelled},
	StatusOrderCreated1C: {StatusTrackingIssued, StatusCancelled},
	StatusTrackingIssued: {StatusShipped, StatusCancelled},
	StatusShipped:        {},
	StatusCancelled:      {},
}

// ParseOrderStatus validates a raw status string.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if _, ok := statusTransitions[s]; !ok {
		return "", fmt.Errorf("unknown order status %q", raw)
	}
	return s, nil
}

// CanTransition reports whether moving from one status to another is legal.
// Repeating the current status or skipping states is not.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(s OrderStatus) bool {
	next, ok := statusTransitions[s]
	return ok && len(next) == 0
}

// Channel identifies the origin through which an order was placed.
type Channel string

const (
	ChannelChatBot Channel = "chat_bot"
	ChannelEmail   Channel = "email"
	ChannelWebForm Channel = "web_form"
)

// ParseChannel validates a raw channel string.
func ParseChannel(raw string) (Channel, error) {
	switch c := Channel(raw); c {
	case ChannelChatBot, ChannelEmail, ChannelWebForm:
		return c, nil
	default:
		return "", fmt.Errorf("unknown order channel %q", raw)
	}
}
