package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCheckoutRequestWholeCart(t *testing.T) {
	req, err := parseCheckoutRequest(createOrderReq{Note: "weekend"})
	require.NoError(t, err)
	assert.Nil(t, req.Direct)
	assert.Empty(t, req.CartEntryIDs)
	assert.Equal(t, "weekend", req.Note)
}

func TestParseCheckoutRequestCartSubset(t *testing.T) {
	req, err := parseCheckoutRequest(createOrderReq{CartEntryIDs: []uint64{3, 5}})
	require.NoError(t, err)
	assert.Nil(t, req.Direct)
	assert.Equal(t, []uint64{3, 5}, req.CartEntryIDs)
}

func TestParseCheckoutRequestDirect(t *testing.T) {
	req, err := parseCheckoutRequest(createOrderReq{TicketID: 9, Quantity: 2})
	require.NoError(t, err)
	require.NotNil(t, req.Direct)
	assert.Equal(t, uint64(9), req.Direct.TicketID)
	assert.Equal(t, uint32(2), req.Direct.Quantity)
	assert.Empty(t, req.CartEntryIDs)
}

func TestParseCheckoutRequestAmbiguous(t *testing.T) {
	_, err := parseCheckoutRequest(createOrderReq{TicketID: 9, Quantity: 1, CartEntryIDs: []uint64{1}})
	assert.Error(t, err)
}

func TestParseCheckoutRequestQuantityWithoutTicket(t *testing.T) {
	// Must not fall through to a whole-cart checkout.
	_, err := parseCheckoutRequest(createOrderReq{Quantity: 2})
	assert.Error(t, err)
}
