// Package bridge lets a front end submit command lines to a session without
// calling it directly. Commands and results travel on bounded FIFO queues
// served by exactly one consumer goroutine.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quocvuong92/ai-shell/internal/commands"
	"github.com/quocvuong92/ai-shell/internal/constants"
	"github.com/quocvuong92/ai-shell/internal/logging"
	"github.com/quocvuong92/ai-shell/internal/session"
)

// Fixed result messages
const (
	MsgTimeout = "Command timeout"
	MsgStopped = "Bridge stopped"
)

// ErrStopped is returned by Start after Stop
var ErrStopped = errors.New("bridge stopped")

// Processor runs one command line
type Processor interface {
	Process(ctx context.Context, line string) (commands.Result, error)
}

// Envelope is the result of one submitted command
type Envelope struct {
	Succeeded bool   `json:"success"`
	Output    string `json:"output"`
	Command   string `json:"command"`

	requestID string
}

type request struct {
	id      string
	command string
	stop    bool
}

// Bridge connects producers to a single consumer of a Processor
type Bridge struct {
	processor Processor
	commands  chan request
	results   chan Envelope

	pollInterval  time.Duration
	resultTimeout time.Duration
	logger        *logging.Logger

	submitMu  sync.Mutex
	startOnce sync.Once
	stopOnce  sync.Once
	mu        sync.Mutex
	started   bool
	done      chan struct{}
}

// Option configures a Bridge
type Option func(*Bridge)

// WithPollInterval sets how long the consumer waits for a command per poll
func WithPollInterval(d time.Duration) Option {
	return func(b *Bridge) { b.pollInterval = d }
}

// WithResultTimeout sets how long Submit waits for its result
func WithResultTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.resultTimeout = d }
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a bridge with queues of the given capacity. A capacity of zero
// or less uses the default.
func New(processor Processor, capacity int, opts ...Option) *Bridge {
	if capacity <= 0 {
		capacity = constants.BridgeQueueCapacity
	}
	b := &Bridge{
		processor:     processor,
		commands:      make(chan request, capacity),
		results:       make(chan Envelope, capacity),
		pollInterval:  constants.BridgePollInterval,
		resultTimeout: constants.BridgeResultTimeout,
		logger:        logging.DefaultLogger,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start launches the consumer goroutine. ctx is passed to every Process call
// and ends the consumer when cancelled. Calling Start more than once has no
// effect.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.done:
		return ErrStopped
	default:
	}
	b.startOnce.Do(func() {
		b.started = true
		go b.consume(ctx)
	})
	return nil
}

// Stop sends the sentinel and waits for the consumer to exit. It is safe to
// call more than once.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.mu.Lock()
		if !b.started {
			close(b.done)
			b.mu.Unlock()
			return
		}
		b.mu.Unlock()

		select {
		case b.commands <- request{stop: true}:
		case <-b.done:
		}
		<-b.done
	})
}

// Done is closed once the consumer has exited
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// Submit enqueues command and waits for its result. On timeout the envelope
// reports MsgTimeout; the late result is discarded by a later Submit.
func (b *Bridge) Submit(ctx context.Context, command string) Envelope {
	b.submitMu.Lock()
	defer b.submitMu.Unlock()

	id := uuid.NewString()
	timer := time.NewTimer(b.resultTimeout)
	defer timer.Stop()

	select {
	case b.commands <- request{id: id, command: command}:
	case <-b.done:
		return Envelope{Succeeded: false, Output: MsgStopped, Command: command}
	case <-ctx.Done():
		return Envelope{Succeeded: false, Output: MsgTimeout, Command: command}
	case <-timer.C:
		return Envelope{Succeeded: false, Output: MsgTimeout, Command: command}
	}

	for {
		select {
		case env := <-b.results:
			if env.requestID != id {
				b.logger.Debug("discarding late bridge result", logging.Fields{
					"request_id": env.requestID,
					"command":    env.Command,
				})
				continue
			}
			return env
		case <-b.done:
			return Envelope{Succeeded: false, Output: MsgStopped, Command: command}
		case <-ctx.Done():
			return Envelope{Succeeded: false, Output: MsgTimeout, Command: command}
		case <-timer.C:
			b.logger.Warn("bridge command timed out", logging.Fields{
				"request_id": id,
				"command":    command,
			})
			return Envelope{Succeeded: false, Output: MsgTimeout, Command: command}
		}
	}
}

func (b *Bridge) consume(ctx context.Context) {
	defer close(b.done)

	poll := time.NewTimer(b.pollInterval)
	defer poll.Stop()

	for {
		select {
		case req := <-b.commands:
			if req.stop {
				b.logger.Debug("bridge consumer stopping")
				return
			}
			env := b.process(ctx, req)
			select {
			case b.results <- env:
			default:
				b.logger.Warn("bridge result queue full, dropping result", logging.Fields{
					"request_id": req.id,
					"command":    req.command,
				})
			}
		case <-poll.C:
		case <-ctx.Done():
			b.logger.Debug("bridge consumer context done")
			return
		}

		if !poll.Stop() {
			select {
			case <-poll.C:
			default:
			}
		}
		poll.Reset(b.pollInterval)
	}
}

// process runs one request, converting panics and errors into failed results
func (b *Bridge) process(ctx context.Context, req request) (env Envelope) {
	env = Envelope{Command: req.command, requestID: req.id}
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			env.Succeeded = false
			env.Output = fmt.Sprintf("Error: %v", p)
			b.logger.Error("bridge processor panicked", fmt.Errorf("%v", p), logging.Fields{
				"request_id": req.id,
				"command":    req.command,
			})
		}
	}()

	res, err := b.processor.Process(ctx, req.command)
	switch {
	case errors.Is(err, session.ErrExit):
		env.Succeeded = true
		env.Output = ""
	case err != nil:
		env.Succeeded = false
		env.Output = fmt.Sprintf("Error: %v", err)
	default:
		env.Succeeded = res.Succeeded
		env.Output = res.Output
	}

	b.logger.Debug("bridge command processed", logging.Fields{
		"request_id":  req.id,
		"command":     req.command,
		"succeeded":   env.Succeeded,
		"duration_ms": logging.Since(start),
	})
	return env
}
