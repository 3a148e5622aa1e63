package broadcast_test

import (
	"context"

	"sheet-broadcast/internal/broadcast"

	"github.com/stretchr/testify/mock"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, to, body string) (string, error) {
	args := m.Called(ctx, to, body)
	return args.String(0), args.Error(1)
}

type MockStatusMarker struct {
	mock.Mock
}

func (m *MockStatusMarker) MarkSent(ctx context.Context, contact broadcast.Contact) error {
	args := m.Called(ctx, contact)
	return args.Error(0)
}
