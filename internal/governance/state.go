package governance

import "fmt"

// Phase is where one asynchronous action currently stands.
type Phase int

const (
	Idle Phase = iota
	Pending
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*p = Idle
	case "pending":
		*p = Pending
	case "succeeded":
		*p = Succeeded
	case "failed":
		*p = Failed
	default:
		return fmt.Errorf("unknown phase %q", b)
	}
	return nil
}

// Action names the two user-triggered actions.
type Action string

const (
	ActionRefresh Action = "refresh"
	ActionExecute Action = "execute"
)

// ActionState is the state machine value for one action. Message is the success text for
// Succeeded and the error text for Failed; it is empty otherwise.
type ActionState struct {
	Phase   Phase  `json:"phase"`
	Message string `json:"message,omitempty"`
}

// FormState is the per-session form: field values, the authoritative ratio, and one state per action.
type FormState struct {
	Target   string
	NewValue string
	RatioBP  *uint32
	Refresh  ActionState
	Execute  ActionState
	// last is the most recently finished action; its message is the alert shown.
	last Action
}

func (s *FormState) action(a Action) *ActionState {
	if a == ActionExecute {
		return &s.Execute
	}
	return &s.Refresh
}

// Alert is the single inline message shown above the form.
type Alert struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// View is a render snapshot of one session.
type View struct {
	RatioBP            *uint32     `json:"ratio_bp,omitempty"`
	RatioPercent       string      `json:"ratio_percent,omitempty"`
	Refresh            ActionState `json:"refresh"`
	Execute            ActionState `json:"execute"`
	Alert              *Alert      `json:"alert,omitempty"`
	Target             string      `json:"target"`
	NewValue           string      `json:"new_value"`
	XAssetContract     string      `json:"xasset_contract"`
	GovernanceContract string      `json:"governance_contract"`
	Wallet             string      `json:"wallet,omitempty"`
	CanSign            bool        `json:"can_sign"`
}

// FormatPercent renders basis points as a percentage with two decimals.
func FormatPercent(bp uint32) string {
	return fmt.Sprintf("%.2f%%", float64(bp)/100)
}

func (s FormState) alert() *Alert {
	if s.last == "" {
		return nil
	}
	st := s.action(s.last)
	switch st.Phase {
	case Succeeded:
		return &Alert{Kind: "success", Message: st.Message}
	case Failed:
		return &Alert{Kind: "error", Message: st.Message}
	}
	return nil
}
