// Package dispatch executes the action side of matched rules. The
// dispatcher resolves placeholder templates, checks per-kind
// preconditions, routes through the handler registry, and reports one
// outcome per rule. Failures are contained: a handler error or panic
// becomes a failed outcome, never an error return, so one rule can
// never stop the rest of an event's pass.
//
// Delayed actions go through an in-process scheduler (see Scheduler)
// and execute later through the same path as immediate ones.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/benbjohnson/clock"

	"github.com/c360/ruleflow/automation"
	"github.com/c360/ruleflow/handler"
	"github.com/c360/ruleflow/metric"
	"github.com/c360/ruleflow/report"
	"github.com/c360/ruleflow/template"
)

// Dispatcher turns matched rules into handler calls and outcomes.
// Construct with New; the zero value is not usable.
type Dispatcher struct {
	handlers *handler.Registry
	reporter report.Reporter
	clock    clock.Clock
	logger   *slog.Logger
	metrics  *dispatchMetrics
	sched    *Scheduler
}

type options struct {
	clock    clock.Clock
	logger   *slog.Logger
	registry *metric.MetricsRegistry
}

// Option configures a Dispatcher.
type Option func(*options)

// WithClock injects the clock used for delays, timestamps, and elapsed
// measurement. Tests pass clock.NewMock().
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger sets the dispatcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics registers dispatch metrics on the given registry.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *options) { o.registry = registry }
}

// New creates a Dispatcher and starts its delay scheduler. A nil
// handlers registry behaves as fully unwired (every action skips); a
// nil reporter discards outcomes. Call Close when done to stop the
// scheduler and drop pending delayed actions.
func New(handlers *handler.Registry, reporter report.Reporter, opts ...Option) (*Dispatcher, error) {
	o := options{
		clock:  clock.New(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if handlers == nil {
		handlers = &handler.Registry{}
	}
	if reporter == nil {
		reporter = report.Discard
	}

	metrics, err := newDispatchMetrics(o.registry)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		handlers: handlers,
		reporter: reporter,
		clock:    o.clock,
		logger:   o.logger.With("component", "dispatch"),
		metrics:  metrics,
	}
	d.sched = newScheduler(d, o.clock, d.logger)
	return d, nil
}

// Scheduler returns the dispatcher's delay scheduler for inspection.
func (d *Dispatcher) Scheduler() *Scheduler {
	return d.sched
}

// Close stops the delay scheduler. Pending delayed actions are dropped
// without outcomes; the drop count is logged. Safe to call more than
// once.
func (d *Dispatcher) Close() error {
	dropped := d.sched.Stop()
	if dropped > 0 {
		d.metrics.recordCancelled(dropped)
		d.logger.Info("dropped pending delayed actions", "count", dropped)
	}
	return nil
}

// Dispatch runs one matched rule against the event that matched it.
// Zero delay executes within the call; a positive DelayMinutes
// schedules execution DelayMinutes*60 seconds out and returns
// immediately. The context applies to immediate execution only;
// delayed executions run under the scheduler's lifecycle with a
// background context. Every call eventually yields exactly one
// reported outcome, except delayed actions dropped by Close.
func (d *Dispatcher) Dispatch(ctx context.Context, rule automation.Rule, evt automation.Event) {
	if rule.Action.DelayMinutes > 0 {
		fireAt := d.clock.Now().Add(delayDuration(rule.Action.DelayMinutes))
		if d.sched.schedule(rule, evt, fireAt) {
			d.metrics.recordScheduled()
			d.logger.Debug("scheduled delayed action",
				"rule", rule.Name,
				"action", string(rule.Action.Kind),
				"delay_minutes", rule.Action.DelayMinutes,
				"fire_at", fireAt,
			)
		} else {
			d.logger.Warn("scheduler stopped, dropping delayed action",
				"rule", rule.Name,
				"action", string(rule.Action.Kind),
			)
		}
		return
	}
	d.execute(ctx, rule, evt, false)
}

// execute is the single execution path for immediate and delayed
// actions.
func (d *Dispatcher) execute(ctx context.Context, rule automation.Rule, evt automation.Event, delayed bool) {
	start := d.clock.Now()
	status, reason, invoked := d.perform(ctx, rule, evt)
	elapsed := d.clock.Now().Sub(start)

	outcome := automation.Outcome{
		Status:      status,
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		TriggerKind: rule.Trigger.Kind,
		ActionKind:  rule.Action.Kind,
		Reason:      reason,
		EventID:     evt.ID,
		Delayed:     delayed,
		At:          d.clock.Now(),
		Elapsed:     elapsed,
	}

	d.reporter.Report(outcome)
	d.metrics.recordOutcome(rule.Action.Kind, status)
	if invoked {
		d.metrics.recordHandlerDuration(rule.Action.Kind, elapsed)
	}
}

// perform resolves templates, checks preconditions, and invokes the
// handler for the rule's action kind. Returns the outcome status, the
// skip or failure reason, and whether a handler was actually invoked.
func (d *Dispatcher) perform(ctx context.Context, rule automation.Rule, evt automation.Event) (automation.OutcomeStatus, string, bool) {
	values := template.FromEvent(evt)
	action := rule.Action

	switch action.Kind {
	case automation.ActionCreateTask:
		title := template.Resolve(action.TaskTitle, values)
		if title == "" {
			return automation.OutcomeSkipped, "task title resolved empty", false
		}
		if d.handlers.Tasks == nil {
			return automation.OutcomeSkipped, "no task handler wired", false
		}
		return result(invoke(func() error {
			return d.handlers.Tasks.CreateTask(ctx, handler.Task{
				Title:       title,
				Description: template.Resolve(action.TaskDescription, values),
			})
		}))

	case automation.ActionSendEmail:
		recipient := template.Resolve(action.Recipient, values)
		if recipient == "" {
			return automation.OutcomeSkipped, "email recipient resolved empty", false
		}
		subject := template.Resolve(action.Subject, values)
		if subject == "" {
			return automation.OutcomeSkipped, "email subject resolved empty", false
		}
		if d.handlers.Email == nil {
			return automation.OutcomeSkipped, "no email handler wired", false
		}
		return result(invoke(func() error {
			return d.handlers.Email.SendEmail(ctx, handler.Email{
				Recipient: recipient,
				Subject:   subject,
				Body:      template.Resolve(action.Body, values),
			})
		}))

	case automation.ActionAddToSchedule:
		if d.handlers.Schedule == nil {
			return automation.OutcomeSkipped, "no schedule handler wired", false
		}
		start := d.clock.Now().AddDate(0, 0, action.StartInDays)
		return result(invoke(func() error {
			return d.handlers.Schedule.AddToSchedule(ctx, handler.ScheduleEntry{
				Name:  template.Resolve(action.EntryName, values),
				Start: start,
				End:   start.AddDate(0, 0, action.DurationDays),
				Color: action.Color,
			})
		}))

	case automation.ActionUpdateInventory:
		job, ok := evt.JobRecord()
		if !ok {
			return automation.OutcomeSkipped, "event carries no job record", false
		}
		if d.handlers.Inventory == nil {
			return automation.OutcomeSkipped, "no inventory handler wired", false
		}
		return result(invoke(func() error {
			return d.handlers.Inventory.DeductForJob(ctx, job)
		}))

	case automation.ActionWebhook:
		if action.URL == "" {
			return automation.OutcomeSkipped, "no webhook url configured", false
		}
		if d.handlers.Webhook == nil {
			return automation.OutcomeSkipped, "no webhook handler wired", false
		}
		return result(invoke(func() error {
			return d.handlers.Webhook.Deliver(ctx, handler.WebhookRequest{
				URL:        action.URL,
				Automation: rule.Name,
				Trigger:    rule.Trigger.Kind,
				Event:      evt,
			})
		}))

	case automation.ActionSendSMS,
		automation.ActionUpdateJobStatus,
		automation.ActionAssignTeam,
		automation.ActionCreateInvoice:
		return automation.OutcomeSkipped, "action kind not implemented", false

	default:
		return automation.OutcomeSkipped, fmt.Sprintf("unknown action kind %q", action.Kind), false
	}
}

// invoke runs a handler call, converting a panic into an error so the
// caller sees a uniform failure.
func invoke(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return fn()
}

func result(err error) (automation.OutcomeStatus, string, bool) {
	if err != nil {
		return automation.OutcomeFailed, err.Error(), true
	}
	return automation.OutcomeSuccess, "", true
}
