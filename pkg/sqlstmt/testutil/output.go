// Package testutil holds helpers shared by package tests.
package testutil

import (
	"io"
	"os"
)

// StdoutOutputForFunc runs f and returns what it wrote to os.Stdout.
func StdoutOutputForFunc(f func()) string {
	return captureOutput(&os.Stdout, f)
}

// StderrOutputForFunc runs f and returns what it wrote to os.Stderr.
func StderrOutputForFunc(f func()) string {
	return captureOutput(&os.Stderr, f)
}

func captureOutput(target **os.File, f func()) string {
	old := *target

	r, w, _ := os.Pipe()
	*target = w

	done := make(chan []byte)

	go func() {
		out, _ := io.ReadAll(r)
		done <- out
	}()

	defer func() { *target = old }()

	f()

	_ = w.Close()

	return string(<-done)
}
