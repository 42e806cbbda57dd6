// Package kfmt provides a minimal, allocation-free formatted output
// implementation that can be used before the Go runtime and the memory
// subsystem are fully initialized.
package kfmt

import "io"

// maxBufSize defines the buffer size for formatting numbers.
const maxBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")

	trueValue  = []byte("true")
	falseValue = []byte("false")

	numFmtBuf = []byte("01234567890123456789012345678901")

	// singleByte is used as a shared buffer for passing single
	// characters to Write.
	singleByte = []byte(" ")

	// earlyPrintBuffer stores Printf output emitted before the console
	// is initialized.
	earlyPrintBuffer ringBuffer

	// outputSink is the io.Writer where Printf sends its output. While
	// nil, output is redirected to the earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the target for calls to Printf to w and copies any
// data accumulated in the early print buffer to it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// Printf works like Fprintf with the active output sink as its target.
// If no sink has been set up yet, output is buffered in a ring buffer
// and flushed by the next SetOutputSink call.
func Printf(format string, args ...interface{}) {
	if outputSink == nil {
		Fprintf(&earlyPrintBuffer, format, args...)
		return
	}

	Fprintf(outputSink, format, args...)
}

// Fprintf formats its arguments to w. It supports a subset of the
// fmt.Fprintf verbs:
//
// Strings:
//
//	%s the uninterpreted bytes of the string or byte slice
//
// Integers:
//
//	%o base 8
//	%d base 10
//	%x base 16, with lower-case letters for a-f
//
// Booleans:
//
//	%t "true" or "false"
//
// Width is specified by an optional decimal number immediately preceding
// the verb. String and base-10 values shorter than the width are
// left-padded with spaces; base-16 values are left-padded with zeroes.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		nextArg int
		padLen  int
	)

	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			writeByte(w, format[i])
			continue
		}

		i++
		for padLen = 0; i < len(format) && format[i] >= '0' && format[i] <= '9'; i++ {
			padLen = padLen*10 + int(format[i]-'0')
		}

		if i >= len(format) {
			w.Write(errNoVerb)
			return
		}

		if format[i] == '%' {
			writeByte(w, '%')
			continue
		}

		if nextArg >= len(args) {
			w.Write(errMissingArg)
			continue
		}

		arg := args[nextArg]
		nextArg++

		switch format[i] {
		case 's':
			fmtString(w, arg, padLen)
		case 'o':
			fmtInt(w, arg, 8, padLen)
		case 'd':
			fmtInt(w, arg, 10, padLen)
		case 'x':
			fmtInt(w, arg, 16, padLen)
		case 't':
			fmtBool(w, arg)
		default:
			w.Write(errNoVerb)
		}
	}
}

// fmtBool prints a boolean value to w.
func fmtBool(w io.Writer, v interface{}) {
	switch val := v.(type) {
	case bool:
		if val {
			w.Write(trueValue)
		} else {
			w.Write(falseValue)
		}
	default:
		w.Write(errWrongArgType)
	}
}

// fmtString prints a string or byte slice value to w left-padded with
// spaces to padLen.
func fmtString(w io.Writer, v interface{}, padLen int) {
	switch val := v.(type) {
	case string:
		padTo(w, ' ', padLen-len(val))
		for i := 0; i < len(val); i++ {
			writeByte(w, val[i])
		}
	case []byte:
		padTo(w, ' ', padLen-len(val))
		w.Write(val)
	default:
		w.Write(errWrongArgType)
	}
}

// fmtInt prints an integer value of any built-in integer type to w in
// the requested base.
func fmtInt(w io.Writer, v interface{}, base, padLen int) {
	var (
		uval   uint64
		sval   int64
		signed bool
	)

	switch val := v.(type) {
	case uint8:
		uval = uint64(val)
	case uint16:
		uval = uint64(val)
	case uint32:
		uval = uint64(val)
	case uint64:
		uval = val
	case uint:
		uval = uint64(val)
	case uintptr:
		uval = uint64(val)
	case int8:
		sval, signed = int64(val), true
	case int16:
		sval, signed = int64(val), true
	case int32:
		sval, signed = int64(val), true
	case int64:
		sval, signed = val, true
	case int:
		sval, signed = int64(val), true
	default:
		w.Write(errWrongArgType)
		return
	}

	if signed {
		if sval < 0 {
			writeByte(w, '-')
			sval = -sval
		}
		uval = uint64(sval)
	}

	index := len(numFmtBuf)
	for {
		index--
		numFmtBuf[index] = "0123456789abcdef"[uval%uint64(base)]
		uval /= uint64(base)
		if uval == 0 {
			break
		}
	}

	padCh := byte(' ')
	if base == 16 {
		padCh = '0'
	}
	padTo(w, padCh, padLen-(len(numFmtBuf)-index))

	w.Write(numFmtBuf[index:])
}

// padTo writes count copies of ch to w; count <= 0 writes nothing.
func padTo(w io.Writer, ch byte, count int) {
	for ; count > 0; count-- {
		writeByte(w, ch)
	}
}

func writeByte(w io.Writer, b byte) {
	singleByte[0] = b
	w.Write(singleByte)
}
