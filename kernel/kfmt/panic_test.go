package kfmt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ethindp/kernel/kernel"
)

func TestPanic(t *testing.T) {
	defer func() {
		cpuHaltFn = func() {}
		outputSink = nil
	}()

	var haltCalls int
	cpuHaltFn = func() { haltCalls++ }

	t.Run("with *kernel.Error", func(t *testing.T) {
		var buf bytes.Buffer
		outputSink = &buf
		haltCalls = 0

		err := &kernel.Error{Module: "test", Message: "panic test"}
		Panic(err)

		if haltCalls != 1 {
			t.Fatalf("expected Panic to halt the CPU once; halted %d times", haltCalls)
		}

		if got := buf.String(); !strings.Contains(got, "[test] unrecoverable error: panic test") {
			t.Fatalf("expected output to contain the error; got %q", got)
		}
	})

	t.Run("with string", func(t *testing.T) {
		var buf bytes.Buffer
		outputSink = &buf

		Panic("something bad happened")

		if got := buf.String(); !strings.Contains(got, "[rt] unrecoverable error: something bad happened") {
			t.Fatalf("expected output to contain the error; got %q", got)
		}
	})

	t.Run("with nil", func(t *testing.T) {
		var buf bytes.Buffer
		outputSink = &buf
		haltCalls = 0

		Panic(nil)

		if haltCalls != 1 {
			t.Fatalf("expected Panic to halt the CPU once; halted %d times", haltCalls)
		}

		if got := buf.String(); !strings.Contains(got, "kernel panic: system halted") {
			t.Fatalf("expected output to contain the panic banner; got %q", got)
		}
	})
}
