// Command appointment-stack synthesizes, checks and deploys the appointment
// CloudFormation stack.
//
// Usage:
//
//	appointment-stack synth -o template.json   Render the template
//	appointment-stack validate                 Check the stack topology
//	appointment-stack diff template.json       Compare against a template
//	appointment-stack deploy                   Create or update the stack
//	appointment-stack version                  Show version
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := newApp()
	err := a.rootCmd().ExecuteContext(ctx)
	a.close()
	stop()

	if err != nil {
		if !errors.Is(err, errDifferences) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
