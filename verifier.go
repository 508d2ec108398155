package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
)

// consoleVerifier asks the operator to finish a sign-in check in the
// browser window and waits for Enter.
type consoleVerifier struct {
	in  io.Reader
	out io.Writer
}

func (v consoleVerifier) AwaitVerification(ctx context.Context, pageURL string) error {
	fmt.Fprintf(v.out, "\nSign-in verification needed at %s\n", pageURL)
	fmt.Fprintln(v.out, "Complete it in the browser window, then press Enter to continue.")

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(v.in).ReadString('\n')
		done <- err
	}()

	select {
	case err := <-done:
		return eris.Wrap(err, "read confirmation")
	case <-ctx.Done():
		return ctx.Err()
	}
}
