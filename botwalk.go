package botwalk

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/botwalk/botwalk/internal/logging"
	"github.com/botwalk/botwalk/internal/runtime"
	"github.com/botwalk/botwalk/internal/validator"
	"github.com/botwalk/botwalk/pkg/adapters/memory"
	"github.com/botwalk/botwalk/pkg/domain"
	"github.com/botwalk/botwalk/pkg/ports"
	"github.com/botwalk/botwalk/pkg/session"
)

// Bot is the high-level entry point of the library. It validates a flow
// once, then drives instances of it through trigger and resume events,
// persisting state between events through a StateStore.
type Bot struct {
	flow      *domain.Flow
	engine    *runtime.Engine
	sessions  *session.Manager
	scheduler ports.Scheduler
	logger    *slog.Logger

	store     ports.StateStore
	locker    ports.DistributedLocker
	deduper   ports.EventDeduper
	lockTTL   time.Duration
	hooks     domain.LifecycleHooks
	caller    ports.Caller
	webhooks  ports.WebhookSink
	assistant ports.AssistantHandoff
	maxSteps  int
}

// Option configures a Bot.
type Option func(*Bot)

// WithStore sets the state store. Defaults to an in-memory store.
func WithStore(store ports.StateStore) Option {
	return func(b *Bot) { b.store = store }
}

// WithLocker enables distributed per-instance locking on top of the
// in-process locks, for multi-replica deployments.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(b *Bot) { b.locker = locker }
}

// WithLockTTL bounds how long a distributed lock is held.
func WithLockTTL(ttl time.Duration) Option {
	return func(b *Bot) { b.lockTTL = ttl }
}

// WithDeduper sets a shared event deduper. Event ids are still recorded in
// each instance's state; the deduper additionally rejects duplicates across
// replicas that do not share that state yet.
func WithDeduper(d ports.EventDeduper) Option {
	return func(b *Bot) { b.deduper = d }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) { b.logger = logger }
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(b *Bot) { b.hooks = hooks }
}

// WithCaller sets the collaborator for http_api nodes.
func WithCaller(c ports.Caller) Option {
	return func(b *Bot) { b.caller = c }
}

// WithScheduler sets the collaborator for sequence nodes.
func WithScheduler(s ports.Scheduler) Option {
	return func(b *Bot) { b.scheduler = s }
}

// WithWebhookSink sets the sink for user_input_flow webhooks.
func WithWebhookSink(w ports.WebhookSink) Option {
	return func(b *Bot) { b.webhooks = w }
}

// WithAssistantHandoff sets the collaborator for fallback_ai actions.
func WithAssistantHandoff(a ports.AssistantHandoff) Option {
	return func(b *Bot) { b.assistant = a }
}

// WithMaxSteps overrides the per-instance step ceiling. The counter persists
// across resumes, so it bounds the instance's total node visits.
func WithMaxSteps(n int) Option {
	return func(b *Bot) { b.maxSteps = n }
}

// Validate runs structural validation on a flow without building a Bot.
func Validate(flow *domain.Flow) domain.ValidationResult {
	return validator.Validate(flow)
}

// New validates the flow and builds a Bot around it. A flow with
// validation errors is rejected.
func New(flow *domain.Flow, messenger ports.Messenger, opts ...Option) (*Bot, error) {
	if flow == nil {
		return nil, fmt.Errorf("flow is required")
	}
	if messenger == nil {
		return nil, fmt.Errorf("messenger is required")
	}

	b := &Bot{flow: flow}
	for _, opt := range opts {
		opt(b)
	}

	if result := validator.Validate(flow); !result.Valid {
		return nil, fmt.Errorf("flow %q is invalid: %s", flow.ID, result.Errors[0])
	}

	if b.logger == nil {
		b.logger = logging.NewNop()
	}
	b.logger = b.logger.With("flow", flow.ID)
	if b.store == nil {
		b.store = memory.NewStore()
	}

	engineOpts := []runtime.Option{
		runtime.WithLogger(b.logger),
		runtime.WithHooks(b.hooks),
	}
	if b.caller != nil {
		engineOpts = append(engineOpts, runtime.WithCaller(b.caller))
	}
	if b.scheduler != nil {
		engineOpts = append(engineOpts, runtime.WithScheduler(b.scheduler))
	}
	if b.webhooks != nil {
		engineOpts = append(engineOpts, runtime.WithWebhookSink(b.webhooks))
	}
	if b.assistant != nil {
		engineOpts = append(engineOpts, runtime.WithAssistantHandoff(b.assistant))
	}
	if b.maxSteps > 0 {
		engineOpts = append(engineOpts, runtime.WithMaxSteps(b.maxSteps))
	}
	b.engine = runtime.NewEngine(flow, messenger, engineOpts...)

	sessionOpts := []session.Option{session.WithLogger(b.logger)}
	if b.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(b.locker))
	}
	if b.lockTTL > 0 {
		sessionOpts = append(sessionOpts, session.WithLockTTL(b.lockTTL))
	}
	b.sessions = session.NewManager(b.store, sessionOpts...)

	return b, nil
}

// Flow returns the flow this bot executes.
func (b *Bot) Flow() *domain.Flow { return b.flow }

// TriggerOptions carries the optional parts of a first-contact message.
type TriggerOptions struct {
	// EventID identifies the inbound delivery for idempotency. It is
	// recorded in the new instance's state, so a redelivery of the same
	// event is dropped instead of consumed as a reply.
	EventID string
}

// Trigger handles a first-contact message: it matches the flow's triggers,
// creates a new instance on a match, runs it, and persists the resulting
// state. Returns domain.ErrNoTriggerMatch when no trigger fires. A
// duplicate event id rejected by the configured deduper returns nil state
// without running the flow.
func (b *Bot) Trigger(ctx context.Context, instanceID, message string, opts TriggerOptions) (*domain.ExecutionState, error) {
	if instanceID == "" {
		instanceID = uuid.NewString()
	}
	var state *domain.ExecutionState
	err := b.sessions.WithLock(ctx, instanceID, func(ctx context.Context) error {
		if b.deduper != nil {
			fresh, dedupeErr := b.deduper.MarkEvent(ctx, instanceID, opts.EventID)
			if dedupeErr != nil {
				return dedupeErr
			}
			if !fresh {
				b.logger.Debug("duplicate event ignored", "instance", instanceID, "event", opts.EventID)
				return nil
			}
		}
		var runErr error
		state, runErr = b.engine.Trigger(ctx, instanceID, message, runtime.TriggerOptions{EventID: opts.EventID})
		if state != nil {
			// Store access stays inside the lock; Manager.Save would
			// re-acquire it.
			if saveErr := b.store.Save(ctx, state.InstanceID, state); saveErr != nil {
				return saveErr
			}
		}
		return runErr
	})
	return state, err
}

// ResumeOptions carries the optional parts of an inbound reply.
type ResumeOptions struct {
	// OptionID selects a question option by id.
	OptionID string

	// EventID identifies the inbound delivery for idempotency. A duplicate
	// resume with an already-consumed event id is a no-op.
	EventID string
}

// Resume feeds a reply into a waiting instance and persists the result.
func (b *Bot) Resume(ctx context.Context, instanceID, input string, opts ResumeOptions) (*domain.ExecutionState, error) {
	var state *domain.ExecutionState
	err := b.sessions.WithLock(ctx, instanceID, func(ctx context.Context) error {
		var loadErr error
		state, loadErr = b.store.Load(ctx, instanceID)
		if loadErr != nil {
			return loadErr
		}
		if b.deduper != nil {
			fresh, dedupeErr := b.deduper.MarkEvent(ctx, instanceID, opts.EventID)
			if dedupeErr != nil {
				return dedupeErr
			}
			if !fresh {
				b.logger.Debug("duplicate event ignored", "instance", instanceID, "event", opts.EventID)
				return nil
			}
		}
		runErr := b.engine.Resume(ctx, state, input, runtime.ResumeOptions{
			OptionID: opts.OptionID,
			EventID:  opts.EventID,
		})
		if saveErr := b.store.Save(ctx, instanceID, state); saveErr != nil {
			return saveErr
		}
		return runErr
	})
	return state, err
}

// Cancel marks a running or waiting instance cancelled and drops any
// pending scheduled steps. Cancelling an already-terminal instance is a
// no-op.
func (b *Bot) Cancel(ctx context.Context, instanceID string) error {
	return b.sessions.WithLock(ctx, instanceID, func(ctx context.Context) error {
		state, err := b.store.Load(ctx, instanceID)
		if err != nil {
			return err
		}
		if state.Status.Terminal() {
			return nil
		}
		state.Status = domain.StatusCancelled
		state.PendingVariable = ""
		if b.scheduler != nil {
			if err := b.scheduler.Cancel(ctx, instanceID); err != nil {
				b.logger.Warn("cancel scheduled steps", "instance", instanceID, "err", err)
			}
		}
		return b.store.Save(ctx, instanceID, state)
	})
}

// State returns the persisted state of an instance.
func (b *Bot) State(ctx context.Context, instanceID string) (*domain.ExecutionState, error) {
	return b.sessions.Load(ctx, instanceID)
}

// Instances lists the ids of all known instances.
func (b *Bot) Instances(ctx context.Context) ([]string, error) {
	return b.sessions.List(ctx)
}

// Sessions exposes the session manager, for hosts that need direct
// store access or custom locking.
func (b *Bot) Sessions() *session.Manager { return b.sessions }
