package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"techypad/internal/domain"
)

func TestOrderStatusCycle(t *testing.T) {
	got := []domain.OrderStatus{}
	s := domain.StatusPending
	for range domain.OrderStatuses {
		s = s.Next()
		got = append(got, s)
	}
	assert.Equal(t, []domain.OrderStatus{
		domain.StatusConfirmed, domain.StatusShipped, domain.StatusDelivered, domain.StatusCancelled, domain.StatusPending,
	}, got)
	assert.Equal(t, domain.StatusPending, domain.OrderStatus("bogus").Next())
}

func TestCustomerCancellable(t *testing.T) {
	assert.True(t, domain.StatusPending.CustomerCancellable())
	assert.True(t, domain.StatusConfirmed.CustomerCancellable())
	assert.False(t, domain.StatusShipped.CustomerCancellable())
	assert.False(t, domain.StatusDelivered.CustomerCancellable())
	assert.False(t, domain.StatusCancelled.CustomerCancellable())
	assert.False(t, domain.OrderStatus("lost").Valid())
}
