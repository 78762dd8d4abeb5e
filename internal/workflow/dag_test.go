package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func recorder(calls *[]string, id string, fail int) Task {
	n := 0
	return Task{ID: id, Run: func(context.Context) error {
		*calls = append(*calls, id)
		n++
		if n <= fail {
			return errors.New(id + " boom")
		}
		return nil
	}}
}

func TestDAGRunsInOrder(t *testing.T) {
	var calls []string
	d := &DAG{Name: "d", Tasks: []Task{
		recorder(&calls, "a", 0),
		recorder(&calls, "b", 0),
		recorder(&calls, "c", 0),
	}}

	require.NoError(t, d.Run(context.Background()))
	require.Equal(t, []string{"a", "b", "c"}, calls)
	require.Equal(t, "a >> b >> c", d.String())
}

func TestDAGRetriesThenSucceeds(t *testing.T) {
	var calls []string
	d := &DAG{Name: "d", Retries: 2, RetryDelay: time.Millisecond, Tasks: []Task{
		recorder(&calls, "a", 2),
		recorder(&calls, "b", 0),
	}}

	require.NoError(t, d.Run(context.Background()))
	require.Equal(t, []string{"a", "a", "a", "b"}, calls)
}

func TestDAGStopsChainAfterExhaustedRetries(t *testing.T) {
	var calls []string
	d := &DAG{Name: "d", Retries: 2, Tasks: []Task{
		recorder(&calls, "a", 0),
		recorder(&calls, "b", 10),
		recorder(&calls, "c", 0),
	}}

	err := d.Run(context.Background())
	require.Error(t, err)

	var taskErr *TaskError
	require.ErrorAs(t, err, &taskErr)
	require.Equal(t, "b", taskErr.Task)
	require.Equal(t, 3, taskErr.Attempts)
	require.Equal(t, []string{"a", "b", "b", "b"}, calls)
}

func TestDAGRetryDelayHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls []string
	d := &DAG{Name: "d", Retries: 5, RetryDelay: time.Hour, Tasks: []Task{
		{ID: "a", Run: func(context.Context) error {
			calls = append(calls, "a")
			cancel()
			return errors.New("boom")
		}},
	}}

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	select {
	case err := <-done:
		require.Error(t, err)
		require.Equal(t, []string{"a"}, calls)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}

func TestDAGRecoversPanics(t *testing.T) {
	d := &DAG{Name: "d", Tasks: []Task{
		{ID: "a", Run: func(context.Context) error { panic("kaboom") }},
	}}

	err := d.Run(context.Background())
	require.ErrorContains(t, err, "panic: kaboom")
}

func TestDAGValidate(t *testing.T) {
	noop := func(context.Context) error { return nil }

	tests := []struct {
		name string
		dag  DAG
		ok   bool
	}{
		{"valid", DAG{Tasks: []Task{{ID: "a", Run: noop}}}, true},
		{"empty", DAG{}, false},
		{"duplicate", DAG{Tasks: []Task{{ID: "a", Run: noop}, {ID: "a", Run: noop}}}, false},
		{"missing func", DAG{Tasks: []Task{{ID: "a"}}}, false},
		{"negative retries", DAG{Retries: -1, Tasks: []Task{{ID: "a", Run: noop}}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.dag.Validate()
			if tt.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}
