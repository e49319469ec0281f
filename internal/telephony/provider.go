package telephony

import (
	"context"

	"dialer-platform/internal/leads"
)

// Outcome is the terminal classification of a completed call.
type Outcome string

const (
	OutcomeConnected Outcome = "CONNECTED"
	OutcomeNoAnswer  Outcome = "NO_ANSWER"
	OutcomeBusy      Outcome = "BUSY"
	OutcomeVoicemail Outcome = "VOICEMAIL"

	// OutcomeCanceled is assigned by the dial engine, never by a provider.
	OutcomeCanceled Outcome = "CANCELED_BY_DIALER"
)

// CompleteFunc receives the terminal outcome of a dialed call.
type CompleteFunc func(outcome Outcome)

// Provider defines the provider-agnostic outbound dialing interface.
//
// Rules:
// - No provider SDK calls outside telephony adapters.
// - Start must invoke onComplete exactly once with a terminal outcome unless
//   Cancel releases the call first. A real integration must map transport
//   failures to a terminal outcome rather than staying silent; the engine has
//   no internal timeout for providers that never call back.
type Provider interface {
	Name() string
	HealthCheck(ctx context.Context) error

	// Start dials the lead and returns the provider's call identifier.
	Start(lead leads.Lead, sessionID string, onComplete CompleteFunc) (string, error)

	// Cancel releases any pending resolution for the provider call id.
	// It is a no-op for unknown or already-resolved calls.
	Cancel(providerCallID string)

	// Recording returns a recording reference for the call, or "" if none.
	Recording(providerCallID string) string
}
