package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionHappyPath(t *testing.T) {
	chain := []OrderStatus{
		StatusNew, StatusValidated, StatusInvoiceCreated, StatusPaid,
		StatusOrderCreated1C, StatusTrackingIssued, StatusShipped,
	}
	for i := 0; i < len(chain)-1; i++ {
		assert.True(t, CanTransition(chain[i], chain[i+1]), "%s -> %s", chain[i], chain[i+1])
	}
}

func TestCanTransitionCancellation(t *testing.T) {
	cancellable := []OrderStatus{
		StatusNew, StatusValidated, StatusInvoiceCreated, StatusPaid,
		StatusOrderCreated1C, StatusTrackingIssued,
	}
	for _, from := range cancellable {
		assert.True(t, CanTransition(from, StatusCancelled), "%s -> cancelled", from)
	}

	assert.False(t, CanTransition(StatusShipped, StatusCancelled))
	assert.False(t, CanTransition(StatusCancelled, StatusCancelled))
}

func TestCanTransitionRejectsSkipsAndRepeats(t *testing.T) {
	assert.False(t, CanTransition(StatusNew, StatusNew))
	assert.False(t, CanTransition(StatusNew, StatusInvoiceCreated))
	assert.False(t, CanTransition(StatusNew, StatusPaid))
	assert.False(t, CanTransition(StatusValidated, StatusValidated))
	assert.False(t, CanTransition(StatusPaid, StatusInvoiceCreated))
	assert.False(t, CanTransition(StatusShipped, StatusShipped))
	assert.False(t, CanTransition(StatusCancelled, StatusNew))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StatusShipped))
	assert.True(t, IsTerminal(StatusCancelled))
	for _, s := range []OrderStatus{StatusNew, StatusValidated, StatusInvoiceCreated, StatusPaid, StatusOrderCreated1C, StatusTrackingIssued} {
		assert.False(t, IsTerminal(s), "%s", s)
	}
}

func TestParseOrderStatus(t *testing.T) {
	s, err := ParseOrderStatus("order_created_1c")
	assert.NoError(t, err)
	assert.Equal(t, StatusOrderCreated1C, s)

	_, err = ParseOrderStatus("delivered")
	assert.Error(t, err)
}

func TestParseChannel(t *testing.T) {
	c, err := ParseChannel("chat_bot")
	assert.NoError(t, err)
	assert.Equal(t, ChannelChatBot, c)

	_, err = ParseChannel("fax")
	assert.Error(t, err)
}
