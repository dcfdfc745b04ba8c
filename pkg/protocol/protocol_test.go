package protocol

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/NicolasHaas/gorelay/pkg/model"
)

func readAll(t *testing.T, lr *LineReader) ([]string, error) {
	t.Helper()
	var lines []string
	for {
		line, err := lr.ReadLine()
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
}

func TestLineReaderFraming(t *testing.T) {
	input := "alice\r\n/members\n\n/room lobby hi bob\nlast-without-newline"
	lines, err := readAll(t, NewLineReader(strings.NewReader(input), 0))
	if err != io.EOF {
		t.Fatalf("expected io.EOF at end of stream, got %v", err)
	}
	want := []string{"alice", "/members", "", "/room lobby hi bob", "last-without-newline"}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

// A stream delivered one byte at a time must decode to the same lines as one
// delivered in a single chunk.
func TestLineReaderChunkedInput(t *testing.T) {
	input := "bob\n/broadcast\nhello there\n"
	lr := NewLineReader(io.MultiReader(oneByteReaders(input)...), 0)
	lines, err := readAll(t, lr)
	if err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	want := []string{"bob", "/broadcast", "hello there"}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func oneByteReaders(s string) []io.Reader {
	readers := make([]io.Reader, 0, len(s))
	for i := 0; i < len(s); i++ {
		readers = append(readers, strings.NewReader(s[i:i+1]))
	}
	return readers
}

func TestLineReaderTooLong(t *testing.T) {
	input := "ok\n" + strings.Repeat("x", 200) + "\n"
	lr := NewLineReader(strings.NewReader(input), MinLineLength)

	line, err := lr.ReadLine()
	if err != nil || line != "ok" {
		t.Fatalf("first line = %q, %v", line, err)
	}
	if _, err := lr.ReadLine(); !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("expected ErrLineTooLong, got %v", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestWriteLine(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLine(&buf, "Left room lobby"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if err := WriteLine(&buf, "already terminated\n"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if got, want := buf.String(), "Left room lobby\nalready terminated\n"; got != want {
		t.Errorf("buffer = %q, want %q", got, want)
	}

	if err := WriteLine(failingWriter{}, "x"); !errors.Is(err, io.ErrClosedPipe) {
		t.Errorf("expected wrapped io.ErrClosedPipe, got %v", err)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"alice", "alice"},
		{"a\tb", "a b"},
		{"bell\a", "bell"},
		{"\x1b[31mred", "[31mred"},
		{"naïve", "naïve"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		line      string
		wantVerb  string
		wantArg   string
		wantText  string
		wantKnown bool
	}{
		{"/members", CmdMembers, "", "", true},
		{"/members   ", CmdMembers, "", "", true},
		{"/create_room lobby", CmdCreateRoom, "lobby", "", true},
		{"/join", CmdJoin, "", "", true},
		{"/join ", CmdJoin, "", "", true},
		{"/room lobby hi bob", CmdRoom, "lobby", "hi bob", true},
		{"/room lobby hi  bob", CmdRoom, "lobby", "hi  bob", true},
		{"/room  lobby hi", CmdRoom, "lobby", "hi", true},
		{"/room lobby", CmdRoom, "lobby", "", true},
		{"/ROOM lobby", "/ROOM", "lobby", "", false},
		{"/rooms", "/rooms", "", "", false},
		{"hello world", "hello", "world", "", false},
		{"", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd := Parse(tt.line)
			if cmd.Verb != tt.wantVerb {
				t.Errorf("Verb = %q, want %q", cmd.Verb, tt.wantVerb)
			}
			if got := cmd.Arg(); got != tt.wantArg {
				t.Errorf("Arg() = %q, want %q", got, tt.wantArg)
			}
			if got := cmd.Text(); got != tt.wantText {
				t.Errorf("Text() = %q, want %q", got, tt.wantText)
			}
			if got := cmd.Known(); got != tt.wantKnown {
				t.Errorf("Known() = %v, want %v", got, tt.wantKnown)
			}
		})
	}
}

func TestReplies(t *testing.T) {
	members := []model.Member{{Index: 1, Nickname: "alice"}, {Index: 2, Nickname: "bob"}}
	if got, want := MembersList(members), "Active chat members are:\n1.alice\n2.bob"; got != want {
		t.Errorf("MembersList = %q, want %q", got, want)
	}
	if got := MembersList(nil); got != ReplyNoMembers {
		t.Errorf("MembersList(nil) = %q", got)
	}
	if got, want := RoomList([]string{"lobby", "random"}), "Rooms:\nlobby  random"; got != want {
		t.Errorf("RoomList = %q, want %q", got, want)
	}
	if got := RoomList(nil); got != ReplyNoRooms {
		t.Errorf("RoomList(nil) = %q", got)
	}
	if got, want := RoomJoined("lobby"), "Joined room lobby successfully!"; got != want {
		t.Errorf("RoomJoined = %q, want %q", got, want)
	}
	if got, want := RoomNotFound("ghost"), "Room ghost does not exist!"; got != want {
		t.Errorf("RoomNotFound = %q, want %q", got, want)
	}

	at := time.Date(2026, 1, 2, 13, 4, 5, 0, time.UTC)
	if got, want := Envelope(at, "alice", "hello"), "[13:04:05] alice: hello"; got != want {
		t.Errorf("Envelope = %q, want %q", got, want)
	}
	if got, want := RoomEnvelope(at, "lobby", "alice", "hi bob"), "[13:04:05] [lobby] alice: hi bob"; got != want {
		t.Errorf("RoomEnvelope = %q, want %q", got, want)
	}
}
