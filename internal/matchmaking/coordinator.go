package matchmaking

import (
	"context"
	"log"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hoshigame/gomoku-online/internal/identity"
	"github.com/hoshigame/gomoku-online/internal/platform/errors"
)

const (
	// DefaultPollInterval is the fixed cadence between ticket polls.
	DefaultPollInterval = 2 * time.Second
	// DefaultBudget bounds how long a ticket is polled before giving up.
	DefaultBudget = 120 * time.Second
)

// CredentialSource supplies the live credential for backend calls.
type CredentialSource interface {
	Credential() (identity.Credential, bool)
}

// Config tunes the coordinator's poll loop.
type Config struct {
	PollInterval time.Duration
	Budget       time.Duration
	// Attributes ride along on the ticket for queue-side matching rules.
	Attributes map[string]any
}

// Coordinator owns the matchmaking flow for one participant: ticket
// submission, status polling against a wall-clock budget, and match
// retrieval.
type Coordinator struct {
	backend  *Client
	creds    CredentialSource
	clock    clockwork.Clock
	interval time.Duration
	budget   time.Duration
	attrs    map[string]any
}

// NewCoordinator creates a coordinator. Zero durations in cfg fall back
// to the defaults.
func NewCoordinator(backend *Client, creds CredentialSource, cfg Config, clock clockwork.Clock) *Coordinator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultBudget
	}
	return &Coordinator{
		backend:  backend,
		creds:    creds,
		clock:    clock,
		interval: cfg.PollInterval,
		budget:   cfg.Budget,
		attrs:    cfg.Attributes,
	}
}

// credential returns the live credential or a typed auth error.
func (c *Coordinator) credential() (identity.Credential, error) {
	cred, ok := c.creds.Credential()
	if !ok {
		return identity.Credential{}, errors.New(errors.CodeAuthCredentialMissing,
			"no credential; log in first")
	}
	if cred.Expired(c.clock.Now()) {
		return identity.Credential{}, errors.New(errors.CodeAuthCredentialExpired,
			"credential expired; log in again")
	}
	return cred, nil
}

// CreateTicket submits a matchmaking ticket on the given queue. The
// ticket's give-up horizon matches the local poll budget so both sides
// stop waiting at the same time.
func (c *Coordinator) CreateTicket(ctx context.Context, queue string) (string, error) {
	cred, err := c.credential()
	if err != nil {
		return "", err
	}

	creator := Entity{ID: cred.ParticipantID, Type: cred.EntityType}
	giveUp := int(c.budget / time.Second)
	ticketID, err := c.backend.CreateTicket(ctx, cred.Token, queue, creator, c.attrs, giveUp)
	if err != nil {
		return "", err
	}
	log.Printf("matchmaking: ticket %s created on queue %s", ticketID, queue)
	return ticketID, nil
}

// PollUntilResolved polls the ticket at a fixed cadence until it reaches
// a terminal state or the budget runs out. onStatus, when non-nil, fires
// once per successful poll. Transient poll failures are swallowed but
// still consume an attempt, so a flaky backend cannot extend the budget.
// Cancellation of ctx exits within one tick, issues one best-effort
// backend cancel, and returns a CANCELED error.
func (c *Coordinator) PollUntilResolved(ctx context.Context, queue, ticketID string, onStatus func(Ticket)) (Match, error) {
	attempts := int((c.budget + c.interval - 1) / c.interval)

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Match{}, c.canceled(ctx, queue, ticketID, err)
		}

		cred, err := c.credential()
		if err != nil {
			return Match{}, err
		}

		ticket, err := c.backend.GetTicket(ctx, cred.Token, queue, ticketID)
		if err != nil {
			log.Printf("matchmaking: poll %d/%d failed: %v", attempt, attempts, err)
		} else {
			if onStatus != nil {
				onStatus(ticket)
			}
			switch ticket.Status {
			case StatusMatched:
				return c.GetMatch(ctx, queue, ticket.MatchID)
			case StatusCanceled:
				return Match{}, errors.New(errors.CodeMatchmakingCanceled,
					"ticket canceled by the backend")
			case StatusFailed:
				return Match{}, errors.New(errors.CodeMatchmakingFailed,
					"matchmaking failed")
			}
		}

		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return Match{}, c.canceled(ctx, queue, ticketID, ctx.Err())
		case <-c.clock.After(c.interval):
		}
	}

	return Match{}, errors.WithMetadata(errors.CodeTimeout,
		"matchmaking budget exhausted", map[string]string{"ticket_id": ticketID})
}

// canceled issues one best-effort backend cancel off the dead context.
func (c *Coordinator) canceled(ctx context.Context, queue, ticketID string, cause error) error {
	if err := c.Cancel(context.WithoutCancel(ctx), queue, ticketID); err != nil {
		log.Printf("matchmaking: best-effort cancel of %s failed: %v", ticketID, err)
	}
	return errors.Wrap(errors.CodeCanceled, "matchmaking canceled", cause)
}

// Cancel cancels a ticket on the backend.
func (c *Coordinator) Cancel(ctx context.Context, queue, ticketID string) error {
	cred, err := c.credential()
	if err != nil {
		return err
	}
	ctx, stop := context.WithTimeout(ctx, 5*time.Second)
	defer stop()
	return c.backend.CancelTicket(ctx, cred.Token, queue, ticketID)
}

// GetMatch fetches the roster for a resolved match.
func (c *Coordinator) GetMatch(ctx context.Context, queue, matchID string) (Match, error) {
	cred, err := c.credential()
	if err != nil {
		return Match{}, err
	}
	return c.backend.GetMatch(ctx, cred.Token, queue, matchID)
}
