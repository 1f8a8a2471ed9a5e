package transfer

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

// Command verbs on the wire.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindList
	KindUpload
	KindSeq
	KindEnd
	KindDelete
)

var (
	ErrUnknownCommand   = errors.New("transfer: unknown command")
	ErrMalformedCommand = errors.New("transfer: malformed command")
)

// Command is one parsed control line.
type Command struct {
	Kind   Kind
	Name   string
	Subdir string
	Count  int
	Index  int
	Data   []byte
	Token  string
}

// Parse decodes one line (terminator already stripped). Chunk lines carry raw
// payload bytes after the separator; everything else is space-delimited text.
func Parse(line []byte) (Command, error) {
	if bytes.HasPrefix(line, []byte("SEQ")) {
		return parseSeq(line)
	}

	fields := strings.Fields(string(line))
	if len(fields) == 0 {
		return Command{}, ErrUnknownCommand
	}
	switch fields[0] {
	case "AUTH":
		if len(fields) != 2 {
			return Command{}, ErrMalformedCommand
		}
		return Command{Kind: KindAuth, Token: fields[1]}, nil
	case "LIST":
		switch len(fields) {
		case 1:
			return Command{Kind: KindList}, nil
		case 2:
			return Command{Kind: KindList, Subdir: fields[1]}, nil
		default:
			return Command{}, ErrMalformedCommand
		}
	case "UPLOAD":
		if len(fields) != 3 {
			return Command{}, ErrMalformedCommand
		}
		count, err := strconv.Atoi(fields[2])
		if err != nil || count < 0 {
			return Command{}, ErrMalformedCommand
		}
		return Command{Kind: KindUpload, Name: fields[1], Count: count}, nil
	case "END":
		if len(fields) != 2 {
			return Command{}, ErrMalformedCommand
		}
		return Command{Kind: KindEnd, Name: fields[1]}, nil
	case "DELETE":
		if len(fields) != 2 {
			return Command{}, ErrMalformedCommand
		}
		return Command{Kind: KindDelete, Name: fields[1]}, nil
	default:
		return Command{}, ErrUnknownCommand
	}
}

func parseSeq(line []byte) (Command, error) {
	sep := bytes.IndexByte(line, '|')
	if sep < 0 {
		return Command{}, ErrMalformedCommand
	}
	index, err := strconv.Atoi(string(line[3:sep]))
	if err != nil || index < 0 {
		return Command{}, ErrMalformedCommand
	}
	data := make([]byte, len(line)-sep-1)
	copy(data, line[sep+1:])
	return Command{Kind: KindSeq, Index: index, Data: data}, nil
}

// Verb names a command kind for logging and metrics.
func (k Kind) Verb() string {
	switch k {
	case KindAuth:
		return "AUTH"
	case KindList:
		return "LIST"
	case KindUpload:
		return "UPLOAD"
	case KindSeq:
		return "SEQ"
	case KindEnd:
		return "END"
	case KindDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}
