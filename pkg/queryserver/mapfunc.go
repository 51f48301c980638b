package queryserver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dop251/goja"
)

// mapFunc is a named, content-addressed registered map function: hash is a
// stable digest of sourceText used for deduplication, and program is the
// compiled entry point shared by every document evaluation.
type mapFunc struct {
	hash       string
	sourceText string
	program    *goja.Program
}

// compileMapFunc normalizes, persists and compiles map-function source text.
// Source is normalized so that a leading "function map(" declaration becomes
// an anonymous function expression exposing a single callable entry point;
// the normalized source is persisted to a scratch file named by pid+digest
// before being handed to the evaluator, and duplicate source (same digest)
// is never recompiled or rewritten twice — the caller is expected to check
// the function table by hash before calling this.
func compileMapFunc(sourceText string) (*mapFunc, error) {
	hash := digestSource(sourceText)
	normalized := normalizeMapSource(sourceText)

	if err := persistScratchSource(hash, normalized); err != nil {
		return nil, fmt.Errorf("writing scratch source for function %s: %w", hash, err)
	}

	program, err := goja.Compile(hash+".js", normalized, false)
	if err != nil {
		return nil, fmt.Errorf("compiling map function: %w", err)
	}

	return &mapFunc{hash: hash, sourceText: sourceText, program: program}, nil
}

func digestSource(src string) string {
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}

// normalizeMapSource rewrites "function map(" to an anonymous function
// expression and wraps the whole thing in parens so that running the
// compiled program yields the function value itself, not merely a hoisted
// declaration with no expression value.
func normalizeMapSource(src string) string {
	trimmed := strings.TrimSpace(src)
	if strings.HasPrefix(trimmed, "function map(") {
		trimmed = "function(" + trimmed[len("function map("):]
	}
	return "(" + trimmed + ")"
}

func scratchFileName(hash string) string {
	return fmt.Sprintf("supercouch-%d-%s.js", os.Getpid(), hash)
}

func persistScratchSource(hash, normalized string) error {
	path := filepath.Join(os.TempDir(), scratchFileName(hash))
	return os.WriteFile(path, []byte(normalized), 0o644)
}

// run evaluates the map function against one document in a fresh runtime,
// with emit/log bound to the supplied callbacks, and returns nothing: all
// output comes through the emit callback.
func (m *mapFunc) run(doc any, emitFn func(key, value goja.Value), logFn func(string)) error {
	vm := goja.New()

	if err := vm.Set("emit", func(call goja.FunctionCall) goja.Value {
		key := call.Argument(0)
		value := call.Argument(1)
		emitFn(key, value)
		return goja.Undefined()
	}); err != nil {
		return err
	}

	if err := vm.Set("log", func(call goja.FunctionCall) goja.Value {
		logFn(call.Argument(0).String())
		return goja.Undefined()
	}); err != nil {
		return err
	}

	v, err := vm.RunProgram(m.program)
	if err != nil {
		return fmt.Errorf("loading map function: %w", err)
	}

	fn, ok := goja.AssertFunction(v)
	if !ok {
		return fmt.Errorf("map function source did not evaluate to a callable function")
	}

	docValue := vm.ToValue(doc)
	if _, err := fn(goja.Undefined(), docValue); err != nil {
		return fmt.Errorf("executing map function: %w", err)
	}
	return nil
}
