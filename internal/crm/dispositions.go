package crm

import "dialer-platform/internal/telephony"

var dispositions = map[telephony.Outcome]string{
	telephony.OutcomeConnected: "Connected - Conversation",
	telephony.OutcomeNoAnswer:  "No Answer",
	telephony.OutcomeBusy:      "Busy",
	telephony.OutcomeVoicemail: "Left Voicemail",
	telephony.OutcomeCanceled:  "Canceled by Dialer",
}

// DispositionFor maps a call outcome to its CRM disposition label.
// Unknown outcomes pass through verbatim so nothing is silently dropped.
func DispositionFor(outcome telephony.Outcome) string {
	if d, ok := dispositions[outcome]; ok {
		return d
	}
	return string(outcome)
}
