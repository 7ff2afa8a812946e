package resolver

import "context"

// MockInvoker is a mock implementation of Invoker for testing
type MockInvoker struct {
	ApplyFunc func(ctx context.Context, scope Scope) (*Outcome, error)
	Calls     []Scope
}

// Apply records the scope and calls ApplyFunc. Without ApplyFunc nothing changes.
func (m *MockInvoker) Apply(ctx context.Context, scope Scope) (*Outcome, error) {
	m.Calls = append(m.Calls, scope)
	if m.ApplyFunc != nil {
		return m.ApplyFunc(ctx, scope)
	}
	return &Outcome{}, nil
}

var (
	_ Invoker = (*Cargo)(nil)
	_ Invoker = (*MockInvoker)(nil)
)
