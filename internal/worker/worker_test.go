package worker

import (
	"context"
	"github.com/rookgm/pcmart/internal/models"
	"github.com/stretchr/testify/assert"
	"sync"
	"testing"
	"time"
)

type paymentStub struct {
	mu         sync.Mutex
	reconciled []string
	done       chan struct{}
}

func (s *paymentStub) GetAwaitingOrders(ctx context.Context, orderCh chan<- models.Order) error {
	select {
	case orderCh <- models.Order{ID: "o1"}:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (s *paymentStub) ReconcileOrders(ctx context.Context, orderCh <-chan models.Order) {
	for {
		select {
		case <-ctx.Done():
			return
		case order := <-orderCh:
			s.mu.Lock()
			s.reconciled = append(s.reconciled, order.ID)
			if len(s.reconciled) == 2 {
				close(s.done)
			}
			s.mu.Unlock()
		}
	}
}

func TestPaymentReconciler_Run(t *testing.T) {
	stub := &paymentStub{done: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	finished := make(chan struct{})
	go func() {
		NewPaymentReconciler(stub, time.Millisecond).Run(ctx)
		close(finished)
	}()

	select {
	case <-stub.done:
	case <-time.After(5 * time.Second):
		t.Fatal("orders were not reconciled")
	}

	cancel()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("reconciler did not stop")
	}

	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Equal(t, []string{"o1", "o1"}, stub.reconciled[:2])
}
