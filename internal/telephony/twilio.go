package telephony

import (
	"context"
	"errors"

	"dialer-platform/internal/leads"
)

// TwilioProvider is a placeholder implementation.
// TODO: wire in Twilio REST client + credentials from config.
type TwilioProvider struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

func NewTwilioProvider(accountSID, authToken, fromNumber string) (*TwilioProvider, error) {
	if accountSID == "" || authToken == "" || fromNumber == "" {
		return nil, errors.New("telephony: twilio credentials not configured")
	}
	return &TwilioProvider{
		AccountSID: accountSID,
		AuthToken:  authToken,
		FromNumber: fromNumber,
	}, nil
}

func (p *TwilioProvider) Name() string { return "twilio" }

func (p *TwilioProvider) HealthCheck(ctx context.Context) error {
	// TODO: call a lightweight Twilio endpoint.
	return nil
}

func (p *TwilioProvider) Start(lead leads.Lead, sessionID string, onComplete CompleteFunc) (string, error) {
	return "", errors.New("telephony: twilio Start not implemented")
}

func (p *TwilioProvider) Cancel(providerCallID string) {
	// TODO: POST a status=canceled update for the call resource.
}

func (p *TwilioProvider) Recording(providerCallID string) string {
	// TODO: fetch the recording URL from the call resource.
	return ""
}
