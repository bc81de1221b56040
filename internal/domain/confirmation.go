package domain

type ConfirmationStatus string

const (
	ConfirmationIdle               ConfirmationStatus = "idle"
	ConfirmationNeedsClarification ConfirmationStatus = "needs_clarification"
	ConfirmationConfirmed          ConfirmationStatus = "confirmed"
)

func (s ConfirmationStatus) Valid() bool {
	switch s {
	case ConfirmationIdle, ConfirmationNeedsClarification, ConfirmationConfirmed:
		return true
	}
	return false
}

// Confirmation is the single-slot clarification sub-state. It cycles
// idle -> needs_clarification -> confirmed -> idle; reset is legal from any
// status (an outstanding clarification may be abandoned without a response).
type Confirmation struct {
	Status   ConfirmationStatus `json:"status"`
	Prompt   string             `json:"prompt"`
	Options  []string           `json:"options,omitempty"`
	Context  string             `json:"context,omitempty"`
	Response string             `json:"response,omitempty"`
}

// NewConfirmation returns the idle slot.
func NewConfirmation() Confirmation {
	return Confirmation{Status: ConfirmationIdle}
}

// Request replaces the slot with a fresh clarification request, clearing any
// stale response.
func (c *Confirmation) Request(prompt string, options []string, context string) {
	*c = Confirmation{
		Status:  ConfirmationNeedsClarification,
		Prompt:  prompt,
		Options: append([]string(nil), options...),
		Context: context,
	}
}

// Respond records the user's answer. Legal only while a clarification is
// outstanding; from any other status the response is discarded untouched.
func (c *Confirmation) Respond(response string) error {
	if c.Status != ConfirmationNeedsClarification {
		return &InvalidTransitionError{Op: "respond", From: c.Status}
	}
	c.Status = ConfirmationConfirmed
	c.Response = response
	return nil
}

// Resolve marks the slot confirmed with the given response, leaving prompt,
// options, and context as they were. Unlike Respond it carries no transition
// guard: this is the agent's administrative path.
func (c *Confirmation) Resolve(response string) {
	c.Status = ConfirmationConfirmed
	c.Response = response
}

// Reset returns the slot to idle, clearing every field together.
func (c *Confirmation) Reset() {
	*c = Confirmation{Status: ConfirmationIdle}
}

func (c Confirmation) clone() Confirmation {
	out := c
	if c.Options != nil {
		out.Options = append([]string(nil), c.Options...)
	}
	return out
}
