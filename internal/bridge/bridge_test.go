package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quocvuong92/ai-shell/internal/commands"
	"github.com/quocvuong92/ai-shell/internal/logging"
	"github.com/quocvuong92/ai-shell/internal/session"
)

type processorFunc func(ctx context.Context, line string) (commands.Result, error)

func (f processorFunc) Process(ctx context.Context, line string) (commands.Result, error) {
	return f(ctx, line)
}

func echoProcessor() processorFunc {
	return func(_ context.Context, line string) (commands.Result, error) {
		return commands.Result{Succeeded: true, Output: "out:" + line}, nil
	}
}

func quietLogger() *logging.Logger {
	return logging.New(logging.Options{Level: logging.LevelNone, Output: io.Discard})
}

func startBridge(t *testing.T, p Processor, opts ...Option) *Bridge {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger()), WithPollInterval(10 * time.Millisecond)}, opts...)
	b := New(p, 4, opts...)
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(b.Stop)
	return b
}

func TestSubmit_FIFO(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	b := startBridge(t, processorFunc(func(_ context.Context, line string) (commands.Result, error) {
		mu.Lock()
		seen = append(seen, line)
		mu.Unlock()
		return commands.Result{Succeeded: true, Output: "out:" + line}, nil
	}))

	for i := 0; i < 20; i++ {
		cmd := fmt.Sprintf("cmd-%d", i)
		env := b.Submit(context.Background(), cmd)
		assert.True(t, env.Succeeded)
		assert.Equal(t, cmd, env.Command)
		assert.Equal(t, "out:"+cmd, env.Output)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 20)
	for i, line := range seen {
		assert.Equal(t, fmt.Sprintf("cmd-%d", i), line)
	}
}

func TestSubmit_ConcurrentProducersGetTheirOwnResult(t *testing.T) {
	b := startBridge(t, echoProcessor())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cmd := fmt.Sprintf("p-%d", i)
			env := b.Submit(context.Background(), cmd)
			assert.Equal(t, "out:"+cmd, env.Output)
		}(i)
	}
	wg.Wait()
}

func TestSubmit_FailedResultPassesThrough(t *testing.T) {
	b := startBridge(t, processorFunc(func(_ context.Context, line string) (commands.Result, error) {
		return commands.Result{Succeeded: false, Output: "cat: x: No such file or directory"}, nil
	}))

	env := b.Submit(context.Background(), "cat x")
	assert.False(t, env.Succeeded)
	assert.Equal(t, "cat: x: No such file or directory", env.Output)
}

func TestSubmit_ErrorBecomesFailedResult(t *testing.T) {
	b := startBridge(t, processorFunc(func(_ context.Context, line string) (commands.Result, error) {
		return commands.Result{}, errors.New("disk on fire")
	}))

	env := b.Submit(context.Background(), "ls")
	assert.False(t, env.Succeeded)
	assert.Equal(t, "Error: disk on fire", env.Output)
}

func TestSubmit_PanicBecomesFailedResult(t *testing.T) {
	b := startBridge(t, processorFunc(func(_ context.Context, line string) (commands.Result, error) {
		if line == "boom" {
			panic("kaboom")
		}
		return commands.Result{Succeeded: true, Output: "fine"}, nil
	}))

	env := b.Submit(context.Background(), "boom")
	assert.False(t, env.Succeeded)
	assert.Equal(t, "Error: kaboom", env.Output)

	env = b.Submit(context.Background(), "after")
	assert.True(t, env.Succeeded, "consumer should survive a panic")
}

func TestSubmit_ExitIsSuccessfulAndEmpty(t *testing.T) {
	b := startBridge(t, processorFunc(func(_ context.Context, line string) (commands.Result, error) {
		return commands.Result{Succeeded: true}, session.ErrExit
	}))

	env := b.Submit(context.Background(), "exit")
	assert.True(t, env.Succeeded)
	assert.Empty(t, env.Output)
	assert.Equal(t, "exit", env.Command)
}

func TestSubmit_Timeout(t *testing.T) {
	release := make(chan struct{})
	b := startBridge(t, processorFunc(func(_ context.Context, line string) (commands.Result, error) {
		if line == "slow" {
			<-release
		}
		return commands.Result{Succeeded: true, Output: line}, nil
	}), WithResultTimeout(50*time.Millisecond))

	env := b.Submit(context.Background(), "slow")
	assert.Equal(t, Envelope{Succeeded: false, Output: MsgTimeout, Command: "slow"}, env)

	close(release)
	b.resultTimeout = time.Second
	env = b.Submit(context.Background(), "fast")
	assert.True(t, env.Succeeded)
	assert.Equal(t, "fast", env.Output, "late result must not be returned to the next caller")
}

func TestSubmit_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	b := startBridge(t, processorFunc(func(_ context.Context, line string) (commands.Result, error) {
		<-release
		return commands.Result{Succeeded: true}, nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	env := b.Submit(ctx, "wait")
	assert.False(t, env.Succeeded)
	assert.Equal(t, MsgTimeout, env.Output)
}

func TestStop_Idempotent(t *testing.T) {
	b := New(echoProcessor(), 0, WithLogger(quietLogger()), WithPollInterval(10*time.Millisecond))
	require.NoError(t, b.Start(context.Background()))

	b.Stop()
	b.Stop()

	select {
	case <-b.Done():
	default:
		t.Fatal("consumer should have exited")
	}

	env := b.Submit(context.Background(), "ls")
	assert.False(t, env.Succeeded)
	assert.Equal(t, MsgStopped, env.Output)
	assert.ErrorIs(t, b.Start(context.Background()), ErrStopped)
}

func TestStop_BeforeStart(t *testing.T) {
	b := New(echoProcessor(), 1, WithLogger(quietLogger()))
	b.Stop()
	assert.ErrorIs(t, b.Start(context.Background()), ErrStopped)
}

func TestStart_ContextCancelEndsConsumer(t *testing.T) {
	b := New(echoProcessor(), 1, WithLogger(quietLogger()), WithPollInterval(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.Start(ctx))
	cancel()

	select {
	case <-b.Done():
	case <-time.After(time.Second):
		t.Fatal("consumer did not exit after cancel")
	}
	b.Stop()
}

func TestEnvelope_JSON(t *testing.T) {
	data, err := json.Marshal(Envelope{Succeeded: true, Output: "hi", Command: "echo hi", requestID: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"output":"hi","command":"echo hi"}`, string(data))
}

func TestBridge_DrivesSession(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/srv", 0755))
	reg, err := commands.NewDefaultRegistry(fsys, nil)
	require.NoError(t, err)
	s := session.New(reg, nil, commands.NewEnv("/srv", "/srv", nil), session.WithLogger(quietLogger()))

	b := startBridge(t, s)
	assert.True(t, b.Submit(context.Background(), "mkdir data").Succeeded)
	assert.True(t, b.Submit(context.Background(), "cd data").Succeeded)

	env := b.Submit(context.Background(), "pwd")
	assert.Equal(t, "/srv/data", env.Output)
	assert.Equal(t, "/srv/data", s.WorkingDir())

	env = b.Submit(context.Background(), "ai show me the files")
	assert.True(t, env.Succeeded)
	assert.Equal(t, "$ ls\n", env.Output)
}
