package provider

import "context"

// Mock is an offline provider. Respond receives the request and
// returns the canned completion; a nil Respond echoes the last user
// message. Tests and the offline CLI mode run entirely on it.
type Mock struct {
	Respond func(req Request) (string, error)
}

// NewMock creates a mock provider with the given responder.
func NewMock(respond func(req Request) (string, error)) *Mock {
	return &Mock{Respond: respond}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Complete(_ context.Context, req Request) (string, error) {
	if m.Respond != nil {
		return m.Respond(req)
	}
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content, nil
		}
	}
	return "", nil
}
