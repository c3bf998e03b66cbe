package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }
func (timeoutErr) Temporary() bool { return true }

func fastPolicy(retries int) Policy {
	return Policy{MaxRetries: retries, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func TestTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"net timeout", &net.OpError{Op: "read", Err: timeoutErr{}}, true},
		{"wrapped timeout", fmt.Errorf("get cohort: %w", &net.OpError{Op: "dial", Err: timeoutErr{}}), true},
		{"unexpected eof", fmt.Errorf("call partner api: %w", io.ErrUnexpectedEOF), true},
		{"refused", errors.Join(syscall.ECONNREFUSED), true},
		{"connection reset", syscall.ECONNRESET, true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"500", &HTTPError{Op: "x", Status: 500}, true},
		{"503 wrapped", fmt.Errorf("find: %w", &HTTPError{Op: "x", Status: 503}), true},
		{"400", &HTTPError{Op: "x", Status: 400}, false},
		{"404", &HTTPError{Op: "x", Status: 404}, false},
		{"429", &HTTPError{Op: "x", Status: 429}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Transient(tt.err))
		})
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(2), func(context.Context) error {
		calls++
		if calls < 3 {
			return &HTTPError{Op: "get", Status: 502}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(2), func(context.Context) error {
		calls++
		return context.DeadlineExceeded
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 3, calls, "one attempt plus two retries")
}

func TestDo_NeverRetriesClientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(5), func(context.Context) error {
		calls++
		return &HTTPError{Op: "create customer", Status: 422, Body: "invalid document"}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 422, StatusOf(err))
	assert.Contains(t, err.Error(), "invalid document")
}

func TestDo_ZeroRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(0), func(context.Context) error {
		calls++
		return syscall.ECONNRESET
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, Policy{MaxRetries: 10, InitialInterval: 50 * time.Millisecond}, func(context.Context) error {
		calls++
		cancel()
		return context.DeadlineExceeded
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, 0, StatusOf(errors.New("x")))
	assert.Equal(t, 401, StatusOf(fmt.Errorf("login: %w", &HTTPError{Status: 401})))
}
