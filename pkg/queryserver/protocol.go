package queryserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/ohler55/ojg/oj"

	"github.com/l7mp/supercouch/pkg/util"
)

// Run drives the view-server line protocol to completion: it reads one
// JSON line at a time from r, fully processes it (including any backend
// commit), and writes exactly one JSON response line to w before reading
// the next. Responses are never reordered relative to requests. Run
// returns nil on a clean EOF from r, matching the documented exit code 0.
func (e *Engine) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)

	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		resp := e.handleLine(ctx, w, line)
		if err := writeLine(w, resp); err != nil {
			if err2 := writeLine(w, wireResponse(NewOutputError(err))); err2 != nil {
				e.log.Error(err2, "failed to write response line")
			}
		}
	}
	return scanner.Err()
}

// writeLine encodes resp as one JSON line and writes it to w. A response
// that cannot be serialized (e.g. it embeds a value ojg's encoder rejects)
// is reported via the returned error so the caller can fall back to the
// canned output_error response instead of crashing the process.
func writeLine(w io.Writer, resp any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to encode response: %v", r)
		}
	}()

	encoded := oj.JSON(resp, nil)
	if _, err := io.WriteString(w, encoded); err != nil {
		return err
	}
	_, err = io.WriteString(w, "\n")
	return err
}

// wireResponse renders err as the wire error shape carrying its reason, or
// falls back to "processing_failed" for a plain error that never went
// through one of the NewXxxError constructors.
func wireResponse(err error) []any {
	var we *WireError
	if errors.As(err, &we) {
		return errorResponse(we.Reason, we.cause.Error())
	}
	return errorResponse("processing_failed", err.Error())
}

// handleLine parses and dispatches a single request line, always returning
// a response value rather than an error: per-line failures are reported on
// the wire, never by terminating the process. Any log() messages raised by a
// map function while handling this line are written to w as ["log", ...]
// lines before the request's own response line.
func (e *Engine) handleLine(ctx context.Context, w io.Writer, line []byte) any {
	req, err := oj.Parse(line)
	if err != nil {
		return wireResponse(NewParseError(err))
	}

	arr, ok := req.([]any)
	if !ok || len(arr) == 0 {
		return wireResponse(NewParseError(fmt.Errorf("request line must be a non-empty JSON array")))
	}

	cmd, ok := arr[0].(string)
	if !ok {
		return wireResponse(NewParseError(fmt.Errorf("request command tag must be a string")))
	}

	switch cmd {
	case cmdReset:
		var state any
		if len(arr) > 1 {
			state = arr[1]
		}
		e.Reset(state)
		return true

	case cmdAddLib:
		return true

	case cmdAddFun:
		if len(arr) < 2 {
			return wireResponse(NewProcessingFailedError(fmt.Errorf("add_fun requires a source text argument")))
		}
		src, ok := arr[1].(string)
		if !ok {
			return wireResponse(NewProcessingFailedError(fmt.Errorf("add_fun source text must be a string")))
		}
		if err := e.AddFunction(src); err != nil {
			return wireResponse(NewProcessingFailedError(err))
		}
		return true

	case cmdMapDoc:
		if len(arr) < 2 {
			return wireResponse(NewProcessingFailedError(fmt.Errorf("map_doc requires a document argument")))
		}
		rows, logs, err := e.MapDoc(ctx, arr[1])
		for _, msg := range logs {
			writeLogLine(w, e.log, msg)
		}
		if err != nil {
			return wireResponse(NewProcessingFailedError(err))
		}
		return emissionRowsToWire(rows)

	case cmdReduce, cmdRereduce:
		return reduceResponse(arr)

	case cmdDdoc:
		return true

	default:
		return wireResponse(NewUnsupportedCommandError(cmd))
	}
}

// reduceResponse answers every reduce/rereduce request with [true,
// [null,...]] — one null per requested function — since reduce/rereduce is
// an explicit non-goal.
func reduceResponse(arr []any) any {
	n := 0
	if len(arr) > 1 {
		if funcs, ok := arr[1].([]any); ok {
			n = len(funcs)
		}
	}
	nulls := make([]any, n)
	return []any{true, nulls}
}

func emissionRowsToWire(rows [][]emission) [][]any {
	return util.Map(func(funcRows []emission) []any {
		return util.Map(func(e emission) any { return []any{e.Key, e.Value} }, funcRows)
	}, rows)
}

// writeLogLine writes one ["log", message] line to w, interleaved on stdout
// ahead of the response line for the request that produced it. A failure to
// write the log line is itself only logged, since the request it belongs to
// must still receive its own response.
func writeLogLine(w io.Writer, log logr.Logger, msg string) {
	if err := writeLine(w, logResponse(msg)); err != nil {
		log.Error(err, "failed to write log line")
	}
}
