package script

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-desim/simtime"
)

func TestResumeWaitThenFinish(t *testing.T) {
	h, err := NewHost(`
		function* main() {
			yield wait(5);
			log("done");
		}
	`, "main", 1)
	require.NoError(t, err)

	status, msgs, err := h.Resume()
	require.NoError(t, err)
	require.Equal(t, StatusSuspended, status)
	require.Len(t, msgs, 1)
	require.Equal(t, MsgWait, msgs[0].Kind)
	require.Equal(t, simtime.FromSeconds(5), msgs[0].Seconds)

	h.SetNow(simtime.FromSeconds(5))
	status, msgs, err = h.Resume()
	require.NoError(t, err)
	require.Equal(t, StatusFinished, status)
	require.Len(t, msgs, 1)
	require.Equal(t, MsgLog, msgs[0].Kind)
	require.Equal(t, "done", msgs[0].Text)
	require.Equal(t, LevelInfo, msgs[0].Level)
}

func TestRequestAndRelease(t *testing.T) {
	h, err := NewHost(`
		function* main() {
			yield request("cashier");
			release("cashier");
		}
	`, "main", 1)
	require.NoError(t, err)

	status, msgs, err := h.Resume()
	require.NoError(t, err)
	require.Equal(t, StatusSuspended, status)
	require.Equal(t, MsgRequest, msgs[0].Kind)
	require.Equal(t, "cashier", msgs[0].Name)

	status, msgs, err = h.Resume()
	require.NoError(t, err)
	require.Equal(t, StatusFinished, status)
	require.Equal(t, MsgRelease, msgs[0].Kind)
}

func TestSpawnMessage(t *testing.T) {
	h, err := NewHost(`
		function* main() {
			spawn("c1", "child");
		}
		function* child() {
			yield wait(1);
		}
	`, "main", 1)
	require.NoError(t, err)

	status, msgs, err := h.Resume()
	require.NoError(t, err)
	require.Equal(t, StatusFinished, status)
	require.Len(t, msgs, 1)
	require.Equal(t, MsgSpawn, msgs[0].Kind)
	require.Equal(t, "c1", msgs[0].Child)
	require.Equal(t, "child", msgs[0].Fn)
}

func TestLogLevel(t *testing.T) {
	h, err := NewHost(`
		function* main() {
			log("bad thing", "error");
			yield wait(0);
		}
	`, "main", 1)
	require.NoError(t, err)
	_, msgs, err := h.Resume()
	require.NoError(t, err)
	require.Equal(t, LevelError, msgs[0].Level)
}

func TestNegativeWaitPanicsIntoError(t *testing.T) {
	h, err := NewHost(`
		function* main() {
			yield wait(-1);
		}
	`, "main", 1)
	require.NoError(t, err)
	status, _, err := h.Resume()
	require.Error(t, err)
	require.Equal(t, StatusErrored, status)
}

func TestNotAGeneratorFails(t *testing.T) {
	_, err := NewHost(`function main() { return 1; }`, "main", 1)
	require.ErrorIs(t, err, ErrNotGenerator)
}

func TestUnknownEntryFunctionFails(t *testing.T) {
	_, err := NewHost(`function* main() {}`, "nope", 1)
	require.ErrorIs(t, err, ErrUnknownFunction)
}

func TestDeterministicRandomPerSeed(t *testing.T) {
	src := `
		function* main() {
			log(String(Math.random()));
			yield wait(0);
		}
	`
	h1, err := NewHost(src, "main", 7)
	require.NoError(t, err)
	_, msgs1, err := h1.Resume()
	require.NoError(t, err)

	h2, err := NewHost(src, "main", 7)
	require.NoError(t, err)
	_, msgs2, err := h2.Resume()
	require.NoError(t, err)

	require.Equal(t, msgs1[0].Text, msgs2[0].Text, "same seed must reproduce identical Math.random() sequence")
}
