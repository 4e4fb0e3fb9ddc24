package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextMessage(t *testing.T, r *Runner) Message {
	t.Helper()
	select {
	case msg, ok := <-r.Messages():
		require.True(t, ok, "message channel closed unexpectedly")
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return Message{}
	}
}

func TestExecuteDeliversLogsAndResult(t *testing.T) {
	r := NewRunner()
	defer r.Close()

	require.NoError(t, r.Execute(`log("checking", "balances"); 41 + 1;`))

	logged := nextMessage(t, r)
	assert.Equal(t, MessageLog, logged.Type)
	assert.Equal(t, "checking balances", logged.Line)

	completed := nextMessage(t, r)
	assert.Equal(t, MessageCompleted, completed.Type)
	assert.Equal(t, "42", completed.Result)
}

func TestExecuteWithoutResult(t *testing.T) {
	r := NewRunner()
	defer r.Close()

	require.NoError(t, r.Execute(`var x = 1;`))

	completed := nextMessage(t, r)
	assert.Equal(t, MessageCompleted, completed.Type)
	assert.Empty(t, completed.Result)
}

func TestScriptErrorSurfacesAsMessage(t *testing.T) {
	r := NewRunner()
	defer r.Close()

	require.NoError(t, r.Execute(`throw new Error("position limit breached");`))

	msg := nextMessage(t, r)
	assert.Equal(t, MessageError, msg.Type)
	assert.Contains(t, msg.Error, "position limit breached")

	// The runner recovers and accepts a subsequent script. A submission that
	// races the previous script's teardown may bounce, so retry.
	require.Eventually(t, func() bool {
		if err := r.Execute(`1;`); err != nil {
			return false
		}
		return nextMessage(t, r).Type == MessageCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStopInterruptsRunningScript(t *testing.T) {
	r := NewRunner()
	defer r.Close()

	require.NoError(t, r.Execute(`log("running"); for (;;) {}`))

	// The log proves the script is past its first statement.
	logged := nextMessage(t, r)
	require.Equal(t, MessageLog, logged.Type)

	r.Stop()

	msg := nextMessage(t, r)
	assert.Equal(t, MessageError, msg.Type)
	assert.Equal(t, "execution stopped", msg.Error)
}

func TestExecuteWhileRunningIsRejected(t *testing.T) {
	r := NewRunner()
	defer r.Close()

	require.NoError(t, r.Execute(`log("running"); for (;;) {}`))
	logged := nextMessage(t, r)
	require.Equal(t, MessageLog, logged.Type)

	// The second submission is rejected either at the call site or with an
	// error message from the host, depending on where the send lands.
	if err := r.Execute(`2;`); err != nil {
		assert.ErrorIs(t, err, ErrBusy)
	} else {
		msg := nextMessage(t, r)
		assert.Equal(t, MessageError, msg.Type)
		assert.Equal(t, ErrBusy.Error(), msg.Error)
	}
}

func TestCloseShutsDownRunner(t *testing.T) {
	r := NewRunner()
	r.Close()
	r.Close() // idempotent

	assert.ErrorIs(t, r.Execute(`1;`), ErrRunnerClosed)
}

func TestCloseInterruptsRunningScript(t *testing.T) {
	r := NewRunner()

	require.NoError(t, r.Execute(`log("running"); for (;;) {}`))
	logged := nextMessage(t, r)
	require.Equal(t, MessageLog, logged.Type)

	r.Close()
	// The interrupted script's goroutine exits instead of spinning forever;
	// its final message may be dropped since the runner is shutting down.
}
