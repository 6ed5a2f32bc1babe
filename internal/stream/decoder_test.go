package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func feedAll(chunks ...string) []Event {
	d := NewDecoder()
	var events []Event
	for _, c := range chunks {
		events = append(events, d.Feed([]byte(c))...)
	}
	return append(events, d.Flush()...)
}

func deltaText(events []Event) string {
	var sb strings.Builder
	for _, ev := range events {
		if ev.Kind == KindDelta {
			sb.WriteString(ev.Text)
		}
	}
	return sb.String()
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   Event
		wantOK bool
	}{
		{"session", `data: {"type":"session","session_id":"abc"}`, SessionAssigned("abc"), true},
		{"delta", `data: {"delta":"Hello"}`, Delta("Hello"), true},
		{"empty delta", `data: {"delta":""}`, Delta(""), true},
		{"error", `data: {"error":"upstream timeout"}`, Failure("upstream timeout"), true},
		{"no space after marker", `data:{"delta":"x"}`, Delta("x"), true},
		{"surrounding whitespace", "  data: {\"delta\":\"x\"}\r", Delta("x"), true},
		{"session id without type is a delta", `data: {"session_id":"abc","delta":"Veuillez saisir"}`, Delta("Veuillez saisir"), true},
		{"null error is ignored", `data: {"error":null,"delta":"ok"}`, Delta("ok"), true},
		{"done sentinel", `data: [DONE]`, Event{}, false},
		{"keep-alive comment", `: keep-alive`, Event{}, false},
		{"event line", `event: message`, Event{}, false},
		{"blank", ``, Event{}, false},
		{"marker only", `data:`, Event{}, false},
		{"malformed json", `data: {"delta":`, Event{}, false},
		{"not an object", `data: [1,2,3]`, Event{}, false},
		{"unknown record", `data: {"type":"usage","tokens":12}`, Event{}, false},
		{"numeric delta", `data: {"delta":12}`, Event{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.line)
			require.Equal(t, tt.wantOK, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDecoderSplitChunksMatchSingleChunk(t *testing.T) {
	whole := feedAll("data: {\"delta\":\"Hello\"}\n")
	split := feedAll("data: {\"delta\":\"Hel", "lo\"}\n")

	require.Equal(t, whole, split)
	require.Equal(t, []Event{Delta("Hello")}, split)
}

func TestDecoderAnyChunkBoundary(t *testing.T) {
	body := "data: {\"type\":\"session\",\"session_id\":\"abc\"}\n\n" +
		": keep-alive\n" +
		"data: {\"delta\":\"Les congés \"}\n\n" +
		"data: {\"delta\":\"sont de 25 jours.\"}\n\n" +
		"data: [DONE]\n\n"

	want := feedAll(body)
	require.Equal(t, "Les congés sont de 25 jours.", deltaText(want))

	// Byte-level splits also cut multi-byte runes in half.
	for i := 1; i < len(body); i++ {
		got := feedAll(body[:i], body[i:])
		require.Equal(t, want, got, "split at %d", i)
	}

	var oneByOne []string
	for i := 0; i < len(body); i++ {
		oneByOne = append(oneByOne, body[i:i+1])
	}
	require.Equal(t, want, feedAll(oneByOne...))
}

func TestDecoderNoiseDoesNotAbort(t *testing.T) {
	events := feedAll(
		": keep-alive\n",
		"data: {not json}\n",
		"data: {\"delta\":\"ok\"}\n",
	)
	require.Equal(t, []Event{Delta("ok")}, events)
}

func TestDecoderErrorIsTerminal(t *testing.T) {
	d := NewDecoder()

	events := d.Feed([]byte("data: {\"delta\":\"Un mo\"}\ndata: {\"error\":\"upstream timeout\"}\ndata: {\"delta\":\"t\"}\n"))
	require.Equal(t, []Event{Delta("Un mo"), Failure("upstream timeout")}, events)
	require.True(t, d.Failed())

	require.Empty(t, d.Feed([]byte("data: {\"delta\":\"more\"}\n")))
	require.Empty(t, d.Flush())
}

func TestDecoderRetainsIncompleteLine(t *testing.T) {
	d := NewDecoder()

	require.Empty(t, d.Feed([]byte("data: {\"delta\":\"a\"}")))
	require.Equal(t, "data: {\"delta\":\"a\"}", d.Buffered())

	require.Equal(t, []Event{Delta("a")}, d.Feed([]byte("\n")))
	require.Equal(t, "", d.Buffered())
}

func TestDecoderFlushTrailingLine(t *testing.T) {
	events := feedAll("data: {\"delta\":\"a\"}\ndata: {\"delta\":\"b\"}")
	require.Equal(t, []Event{Delta("a"), Delta("b")}, events)
}

func TestDecoderEmptyStream(t *testing.T) {
	require.Empty(t, feedAll())
	require.Empty(t, feedAll(""))
}

func TestKindString(t *testing.T) {
	require.Equal(t, "session", KindSession.String())
	require.Equal(t, "delta", KindDelta.String())
	require.Equal(t, "error", KindError.String())
	require.Equal(t, "unknown", Kind(0).String())
}

func TestDecoderLineEndings(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
	}{
		{"lf", []string{"data: {\"delta\":\"a\"}\ndata: {\"delta\":\"b\"}\n"}},
		{"crlf", []string{"data: {\"delta\":\"a\"}\r\ndata: {\"delta\":\"b\"}\r\n"}},
		{"bare cr", []string{"data: {\"delta\":\"a\"}\rdata: {\"delta\":\"b\"}\r"}},
		{"crlf split", []string{"data: {\"delta\":\"a\"}\r", "\ndata: {\"delta\":\"b\"}\r", "\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, []Event{Delta("a"), Delta("b")}, feedAll(tt.chunks...))
		})
	}
}

func TestDecoderBareCRCompletesLine(t *testing.T) {
	d := NewDecoder()
	require.Equal(t, []Event{Delta("a")}, d.Feed([]byte("data: {\"delta\":\"a\"}\r")))
	require.Equal(t, "", d.Buffered())
}

func TestDecoderDropsOversizedLine(t *testing.T) {
	d := NewDecoder()
	huge := "data: {\"delta\":\"" + strings.Repeat("x", MaxLineSize) + "\"}"

	require.Empty(t, d.Feed([]byte(huge[:MaxLineSize/2])))
	require.Empty(t, d.Feed([]byte(huge[MaxLineSize/2:])))
	require.LessOrEqual(t, len(d.Buffered()), MaxLineSize)

	events := d.Feed([]byte("\ndata: {\"delta\":\"ok\"}\n"))
	require.Equal(t, []Event{Delta("ok")}, events)
	require.False(t, d.Failed())
}

func TestDecoderOversizedTrailingLineIsNotFlushed(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("data: {\"delta\":\"" + strings.Repeat("x", MaxLineSize)))
	require.Empty(t, d.Flush())
}
