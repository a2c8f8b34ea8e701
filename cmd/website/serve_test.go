package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunServerStopsTasksWhenListenFails(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	stopped := make(chan struct{})
	task := func(ctx context.Context) {
		<-ctx.Done()
		close(stopped)
	}

	done := make(chan error, 1)
	go func() {
		server := &http.Server{Addr: taken.Addr().String(), Handler: http.NotFoundHandler()}
		done <- runServer(context.Background(), server, time.Second, task)
	}()

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "http server")
	case <-time.After(5 * time.Second):
		t.Fatal("runServer did not return after the listener failed")
	}
	select {
	case <-stopped:
	default:
		t.Fatal("background task still running")
	}
}

func TestRunServerShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	task := func(ctx context.Context) {
		close(started)
		<-ctx.Done()
	}

	done := make(chan error, 1)
	go func() {
		server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
		done <- runServer(ctx, server, time.Second, task)
	}()

	<-started
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runServer did not return after cancellation")
	}
}
