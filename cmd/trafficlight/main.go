// Command trafficlight is a console traffic light. Type warn, panic, calm or
// clear to fire events, cancel to abandon a pending transition, quit to exit.
// Leaving red is deferred behind a countdown.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/librescoot/fsm"
)

const (
	cmdTick   = "tick"
	cmdCancel = "cancel"
	cmdState  = "state"
	cmdQuit   = "quit"
)

type command struct {
	name string
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout, cfg.logger(os.Stderr)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, in io.Reader, out io.Writer, logger *slog.Logger) error {
	bp, err := compileLight()
	if err != nil {
		return fmt.Errorf("compile definition: %w", err)
	}

	sched := newScheduler(cfg.QueueSize, logger)
	defer sched.stopAllTimers()

	light, err := newLight(bp, cfg, sched, out, logger)
	if err != nil {
		return fmt.Errorf("create light: %w", err)
	}
	if _, err := light.Fire(bp.StartupEvent()); err != nil {
		return err
	}

	go readCommands(ctx, in, sched)

	return eventLoop(ctx, light, sched.cmds, logger)
}

// readCommands queues one command per input line and quit at end of input
func readCommands(ctx context.Context, in io.Reader, sched *scheduler) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		name := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if name == "" {
			continue
		}
		sched.send(command{name: name})
	}
	sched.send(command{name: cmdQuit})
}

// eventLoop is the only goroutine that touches the machine
func eventLoop(ctx context.Context, light *Light, cmds <-chan command, logger *slog.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-cmds:
			quit, err := handle(light, cmd)
			if err != nil {
				return err
			}
			if quit {
				logger.Debug("quitting", "state", light.Current())
				return nil
			}
		}
	}
}

func handle(light *Light, cmd command) (bool, error) {
	switch cmd.name {
	case cmdQuit:
		return true, nil
	case cmdTick:
		return false, light.onTick()
	case cmdCancel:
		return false, light.cancel()
	case cmdState:
		light.log("STATE         : "+string(light.Current()), false)
		return false, nil
	}

	event := fsm.EventID(cmd.name)
	if !light.Blueprint().HasEvent(event) {
		light.log("UNKNOWN       : "+cmd.name, false)
		return false, nil
	}
	_, err := light.Event(event)()
	return false, err
}
