package models

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		current OrderStatus
		req     TransitionRequest
		want    TransitionResult
		wantErr error
	}{
		{
			name:    "set_any_to_shipped",
			current: OrderStatusDelivered,
			req:     TransitionRequest{Kind: TransitionSet, Status: OrderStatusShipped},
			want:    TransitionResult{From: OrderStatusDelivered, To: OrderStatusShipped},
		},
		{
			name:    "set_cancelled_enters_cancelled",
			current: OrderStatusProcessing,
			req:     TransitionRequest{Kind: TransitionSet, Status: OrderStatusCancelled},
			want:    TransitionResult{From: OrderStatusProcessing, To: OrderStatusCancelled, EnteredCancelled: true},
		},
		{
			name:    "set_out_of_cancelled",
			current: OrderStatusCancelled,
			req:     TransitionRequest{Kind: TransitionSet, Status: OrderStatusPending},
			want:    TransitionResult{From: OrderStatusCancelled, To: OrderStatusPending},
		},
		{
			name:    "set_confirmed_rejected",
			current: OrderStatusPending,
			req:     TransitionRequest{Kind: TransitionSet, Status: OrderStatusConfirmed},
			wantErr: ErrInvalidStatus,
		},
		{
			name:    "set_unknown_rejected",
			current: OrderStatusPending,
			req:     TransitionRequest{Kind: TransitionSet, Status: "Lost"},
			wantErr: ErrInvalidStatus,
		},
		{
			name:    "action_confirm_pending",
			current: OrderStatusPending,
			req:     TransitionRequest{Kind: TransitionAction, Action: ActionConfirmed},
			want:    TransitionResult{From: OrderStatusPending, To: OrderStatusConfirmed},
		},
		{
			name:    "action_cancel_pending",
			current: OrderStatusPending,
			req:     TransitionRequest{Kind: TransitionAction, Action: ActionCancelled},
			want:    TransitionResult{From: OrderStatusPending, To: OrderStatusCancelled, EnteredCancelled: true},
		},
		{
			name:    "action_unknown",
			current: OrderStatusPending,
			req:     TransitionRequest{Kind: TransitionAction, Action: "shipped"},
			wantErr: ErrInvalidAction,
		},
		{
			name:    "action_from_shipped",
			current: OrderStatusShipped,
			req:     TransitionRequest{Kind: TransitionAction, Action: ActionConfirmed},
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "customer_cancel_shipped",
			current: OrderStatusShipped,
			req:     TransitionRequest{Kind: TransitionCustomerCancel},
			want:    TransitionResult{From: OrderStatusShipped, To: OrderStatusCancelled, EnteredCancelled: true},
		},
		{
			name:    "customer_cancel_twice",
			current: OrderStatusCancelled,
			req:     TransitionRequest{Kind: TransitionCustomerCancel},
			want:    TransitionResult{From: OrderStatusCancelled, To: OrderStatusCancelled, AlreadyCancelled: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.current, tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOrderStatus(t *testing.T) {
	st, ok := ParseOrderStatus(" shipped ")
	require.True(t, ok)
	assert.Equal(t, OrderStatusShipped, st)

	_, ok = ParseOrderStatus("lost")
	assert.False(t, ok)
}

func TestPaymentMethod_Label(t *testing.T) {
	assert.Equal(t, "Cash on Delivery", PaymentCashOnDelivery.Label())
	assert.Equal(t, "Credit Card/Debit Card", PaymentCreditCard.Label())
	assert.Equal(t, "Net Banking", PaymentNetBanking.Label())
}
