package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/KamdynS/mcpchat/agent/core"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
)

const quitCommand = "quit"

// chatLoop reads queries from in until quit, EOF or cancellation. A failed
// run is reported and the loop waits for the next query.
func chatLoop(ctx context.Context, runner core.Runner, in io.Reader, ui *console) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ui.Intro()

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		ui.Prompt()

		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return errors.Wrap(err, "read query")
					}
				default:
				}
				return nil
			}
			line = l
		}

		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}
		if strings.EqualFold(query, quitCommand) {
			return nil
		}

		res, err := runner.Run(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.KV(xlog.DEBUG, "status", "run_failed", "err", err.Error())
			ui.Error(err)
			continue
		}
		ui.Answer(res.Content)
	}
}
