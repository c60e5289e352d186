package main

import (
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/librescoot/fsm"
)

//go:embed trafficlight.yaml
var definitionYAML []byte

const countdownTimer = "countdown"

var buttons = []fsm.EventID{"panic", "warn", "calm", "clear"}

// Light is a traffic light driven by a state machine. Hooks reach the light
// through the machine's data.
type Light struct {
	*fsm.Machine

	out       io.Writer
	sched     *scheduler
	tick      time.Duration
	countdown int

	count     int
	remaining int
}

func compileLight() (*fsm.Blueprint, error) {
	cfg, err := fsm.ParseConfig(definitionYAML)
	if err != nil {
		return nil, err
	}

	light := func(c *fsm.Context) *Light { return c.Data.(*Light) }
	say := func(msg string) fsm.Callback {
		return func(c *fsm.Context) error {
			light(c).log(msg, false)
			return nil
		}
	}
	// formats use explicit indexes: 1 event, 2 from, 3 to
	logf := func(format string, separate bool) fsm.Callback {
		return func(c *fsm.Context) error {
			light(c).log(fmt.Sprintf(format, c.Event, c.FromState, c.ToState), separate)
			return nil
		}
	}

	return cfg.Definition().
		Callbacks(map[string]fsm.Callback{
			"onBeforeStart": say("STARTING UP"),
			"onStart":       say("READY"),

			"onBeforeWarn":  logf("START   EVENT: %[1]s!", true),
			"onBeforePanic": logf("START   EVENT: %[1]s!", true),
			"onBeforeCalm":  logf("START   EVENT: %[1]s!", true),
			"onBeforeClear": logf("START   EVENT: %[1]s!", true),

			"onAfterWarn":  logf("FINISH  EVENT: %[1]s!", false),
			"onAfterPanic": logf("FINISH  EVENT: %[1]s!", false),
			"onAfterCalm":  logf("FINISH  EVENT: %[1]s!", false),
			"onAfterClear": logf("FINISH  EVENT: %[1]s!", false),

			"onLeaveGreen":  logf("LEAVE   STATE: %[2]s", false),
			"onLeaveYellow": logf("LEAVE   STATE: %[2]s", false),
			"onLeaveRed": func(c *fsm.Context) error {
				l := light(c)
				l.log("LEAVE   STATE: red", false)
				l.startCountdown(c.ToState)
				c.Defer()
				return nil
			},

			"onGreen":  logf("ENTER   STATE: %[3]s", false),
			"onYellow": logf("ENTER   STATE: %[3]s", false),
			"onRed":    logf("ENTER   STATE: %[3]s", false),

			"onChangeState": logf("CHANGED STATE: %[2]s to %[3]s", false),
		}).
		Compile()
}

func newLight(bp *fsm.Blueprint, cfg Config, sched *scheduler, out io.Writer, logger *slog.Logger) (*Light, error) {
	l := &Light{
		out:       out,
		sched:     sched,
		tick:      cfg.Tick,
		countdown: cfg.Countdown,
	}

	m, err := bp.New(
		fsm.WithData(l),
		fsm.WithLogger(logger),
		fsm.WithErrorHandler(func(e *fsm.Error) (fsm.Result, error) {
			l.log("REJECTED      : "+e.Message, false)
			return fsm.Result{}, nil
		}),
	)
	if err != nil {
		return nil, err
	}
	l.Machine = m
	return l, nil
}

// log prints a numbered message followed by the light and its enabled buttons
func (l *Light) log(msg string, separate bool) {
	if separate {
		l.count++
		fmt.Fprintln(l.out)
	}
	fmt.Fprintf(l.out, "%d: %s\n", l.count, msg)
	if l.Machine == nil {
		return
	}

	var enabled []string
	for _, b := range buttons {
		if l.Can(b) {
			enabled = append(enabled, string(b))
		}
	}
	fmt.Fprintf(l.out, "   [%s] buttons: %s\n", l.Current(), strings.Join(enabled, " "))
}

func (l *Light) startCountdown(to fsm.StateID) {
	l.remaining = l.countdown
	l.pending(to)
	l.sched.startTimer(countdownTimer, l.tick, command{name: cmdTick})
}

func (l *Light) pending(to fsm.StateID) {
	l.log(fmt.Sprintf("PENDING STATE: %s in ...%d", to, l.remaining), false)
}

// onTick advances the countdown and completes the deferred transition at zero
func (l *Light) onTick() error {
	p, ok := l.Pending()
	if !ok {
		return nil
	}
	l.remaining--
	if l.remaining > 0 {
		l.pending(p.To)
		l.sched.startTimer(countdownTimer, l.tick, command{name: cmdTick})
		return nil
	}
	l.sched.stopTimer(countdownTimer)
	_, err := l.CompleteTransition()
	return err
}

// cancel abandons the deferred transition, if any
func (l *Light) cancel() error {
	l.sched.stopTimer(countdownTimer)
	res, err := l.CancelTransition()
	if err != nil {
		return err
	}
	if res.Status == fsm.Cancelled {
		l.log(fmt.Sprintf("CANCELLED     : %s to %s", res.From, res.To), false)
	}
	return nil
}
