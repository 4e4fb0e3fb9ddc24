// Package strategy hosts user strategy scripts in an isolated JavaScript
// runtime. The host and the runtime communicate only by messages: the host
// sends an execute message and receives log, completed and error messages
// back; cancellation is a stop message, not a shared flag.
package strategy

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// MessageType tags a host/runtime message.
type MessageType string

const (
	MessageExecute   MessageType = "execute"
	MessageStop      MessageType = "stop"
	MessageLog       MessageType = "log"
	MessageCompleted MessageType = "completed"
	MessageError     MessageType = "error"
)

// Message is the only value that crosses the host/runtime boundary.
type Message struct {
	Type   MessageType `json:"type"`
	Code   string      `json:"code,omitempty"`
	Line   string      `json:"line,omitempty"`
	Result string      `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

var (
	ErrRunnerClosed = errors.New("strategy runner is closed")
	ErrBusy         = errors.New("a strategy is already executing")
)

const interruptReason = "execution stopped"

// Runner is the execution host. One script runs at a time; messages from the
// running script are delivered on Messages in order.
type Runner struct {
	in     chan Message
	out    chan Message
	done   chan struct{}
	closed sync.Once
	logger zerolog.Logger
}

// NewRunner starts the host actor.
func NewRunner() *Runner {
	r := &Runner{
		in:     make(chan Message),
		out:    make(chan Message, 64),
		done:   make(chan struct{}),
		logger: log.With().Str("component", "strategy").Logger(),
	}
	go r.loop()
	return r
}

// Execute submits a script for execution. A submission that arrives while a
// script is running is rejected: the host emits an error message carrying
// ErrBusy's text on Messages, or, when no goroutine is ready to take the
// submission, Execute fails with ErrBusy directly. Callers watch the message
// stream either way.
func (r *Runner) Execute(code string) error {
	select {
	case <-r.done:
		return ErrRunnerClosed
	case r.in <- Message{Type: MessageExecute, Code: code}:
		return nil
	default:
		return ErrBusy
	}
}

// Stop interrupts the running script, if any. The script's goroutine
// delivers a final error message once the interrupt lands.
func (r *Runner) Stop() {
	select {
	case <-r.done:
	case r.in <- Message{Type: MessageStop}:
	default:
	}
}

// Messages is the stream of log, completed and error messages.
func (r *Runner) Messages() <-chan Message {
	return r.out
}

// Close shuts the runner down. Any running script is interrupted.
func (r *Runner) Close() {
	r.closed.Do(func() {
		close(r.done)
	})
}

func (r *Runner) loop() {
	defer close(r.out)

	for {
		select {
		case <-r.done:
			return
		case msg := <-r.in:
			switch msg.Type {
			case MessageExecute:
				r.run(msg.Code)
			case MessageStop:
				// Nothing is running; stop is a no-op.
			}
		}
	}
}

// run executes one script to completion, forwarding its log calls and
// watching for a stop message or shutdown while it runs.
func (r *Runner) run(code string) {
	vm := goja.New()
	finished := make(chan struct{})

	if err := vm.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := ""
		for i, arg := range call.Arguments {
			if i > 0 {
				parts += " "
			}
			parts += arg.String()
		}
		r.emit(Message{Type: MessageLog, Line: parts})
		return goja.Undefined()
	}); err != nil {
		r.emit(Message{Type: MessageError, Error: err.Error()})
		return
	}

	// Watch for stop while the script runs. vm.Interrupt is the only
	// channel of control back into the runtime.
	go func() {
		for {
			select {
			case <-finished:
				return
			case <-r.done:
				vm.Interrupt(interruptReason)
				return
			case msg := <-r.in:
				if msg.Type == MessageStop {
					vm.Interrupt(interruptReason)
					return
				}
				// An execute arriving mid-run is rejected.
				if msg.Type == MessageExecute {
					r.emit(Message{Type: MessageError, Error: ErrBusy.Error()})
				}
			}
		}
	}()

	value, err := vm.RunString(code)
	close(finished)

	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			r.emit(Message{Type: MessageError, Error: interruptReason})
			return
		}
		r.emit(Message{Type: MessageError, Error: err.Error()})
		return
	}

	result := ""
	if value != nil && !goja.IsUndefined(value) && !goja.IsNull(value) {
		result = fmt.Sprintf("%v", value.Export())
	}
	r.emit(Message{Type: MessageCompleted, Result: result})
}

func (r *Runner) emit(msg Message) {
	select {
	case r.out <- msg:
	case <-r.done:
	default:
		r.logger.Warn().Str("type", string(msg.Type)).Msg("dropping message, consumer too slow")
	}
}
