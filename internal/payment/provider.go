package payment

import (
	"context"

	"github.com/showseat/boxoffice/internal/domain"
)

// Provider charges an order. The shipped implementation is the mock
// instant-success gateway behind the mock_pay endpoint; a real gateway
// plugs in here without touching the order state machine.
type Provider interface {
	Charge(ctx context.Context, order domain.Order) error
}

type MockProvider struct{}

func (MockProvider) Charge(ctx context.Context, order domain.Order) error {
	return nil
}
