package transfer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/gemctl/internal/testutil/testlog"
)

func TestParseCommands(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		line string
		want Command
	}{
		{"AUTH s3cret", Command{Kind: KindAuth, Token: "s3cret"}},
		{"LIST", Command{Kind: KindList}},
		{"LIST docs", Command{Kind: KindList, Subdir: "docs"}},
		{"UPLOAD notes.txt 3", Command{Kind: KindUpload, Name: "notes.txt", Count: 3}},
		{"END notes.txt", Command{Kind: KindEnd, Name: "notes.txt"}},
		{"DELETE notes.txt", Command{Kind: KindDelete, Name: "notes.txt"}},
	}
	for _, tc := range cases {
		got, err := Parse([]byte(tc.line))
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.line, err)
		}
		if got.Kind != tc.want.Kind || got.Name != tc.want.Name ||
			got.Subdir != tc.want.Subdir || got.Count != tc.want.Count ||
			got.Token != tc.want.Token {
			t.Fatalf("Parse(%q) = %+v, want %+v", tc.line, got, tc.want)
		}
	}
}

func TestParseSeqPayload(t *testing.T) {
	testlog.Start(t)
	got, err := Parse([]byte("SEQ4|hello world"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got.Kind != KindSeq || got.Index != 4 {
		t.Fatalf("got %+v", got)
	}
	if !bytes.Equal(got.Data, []byte("hello world")) {
		t.Fatalf("data=%q", got.Data)
	}

	// Payload may contain separators and spaces verbatim.
	got, err = Parse([]byte("SEQ0|a|b c "))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !bytes.Equal(got.Data, []byte("a|b c ")) {
		t.Fatalf("data=%q", got.Data)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	testlog.Start(t)
	malformed := []string{
		"UPLOAD onlyname",
		"UPLOAD name notanumber",
		"UPLOAD name -1",
		"SEQ|data",
		"SEQx|data",
		"SEQ1",
		"AUTH",
		"END",
		"DELETE",
		"LIST a b",
	}
	for _, line := range malformed {
		if _, err := Parse([]byte(line)); !errors.Is(err, ErrMalformedCommand) {
			t.Fatalf("Parse(%q) err=%v, want ErrMalformedCommand", line, err)
		}
	}
	if _, err := Parse([]byte("NOPE x")); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("err=%v, want ErrUnknownCommand", err)
	}
	if _, err := Parse([]byte("")); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("err=%v, want ErrUnknownCommand", err)
	}
}

func TestUploadSessionReassembly(t *testing.T) {
	testlog.Start(t)
	u := NewUploadSession("f.txt", 3)
	if !u.AddChunk(2, []byte("!")) {
		t.Fatal("chunk 2 dropped")
	}
	if !u.AddChunk(0, []byte("Hello ")) {
		t.Fatal("chunk 0 dropped")
	}
	if !u.AddChunk(1, []byte("World")) {
		t.Fatal("chunk 1 dropped")
	}
	if u.Received() != 3 {
		t.Fatalf("received=%d", u.Received())
	}
	if got := string(u.Assemble()); got != "Hello World!" {
		t.Fatalf("assembled=%q", got)
	}
}

func TestUploadSessionGapsAndBounds(t *testing.T) {
	testlog.Start(t)
	u := NewUploadSession("f.txt", 3)
	if u.AddChunk(3, []byte("x")) {
		t.Fatal("out-of-range chunk accepted")
	}
	if u.AddChunk(-1, []byte("x")) {
		t.Fatal("negative chunk accepted")
	}
	u.AddChunk(0, []byte("ab"))
	u.AddChunk(2, []byte("cd"))
	if got := string(u.Assemble()); got != "abcd" {
		t.Fatalf("assembled=%q, want gap-filled %q", got, "abcd")
	}
}
