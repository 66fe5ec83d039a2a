package schemas

import (
	"time"

	"github.com/xkilldash9x/libpass-cli/internal/profile"
)

// MessageType tags a request or response in the component protocol.
type MessageType string

const (
	MsgPaywallDetected  MessageType = "PAYWALL_DETECTED"
	MsgGetStrategy      MessageType = "GET_STRATEGY"
	MsgStrategyResponse MessageType = "STRATEGY_RESPONSE"
	MsgOpenViaLibrary   MessageType = "OPEN_VIA_LIBRARY"
	MsgOpenAck          MessageType = "OPEN_ACK"
)

// Message is the tagged envelope exchanged between the detector-facing
// front end and the automation back end.
type Message struct {
	Type     MessageType           `json:"type"`
	Domain   string                `json:"domain,omitempty"`
	URL      string                `json:"url,omitempty"`
	Title    string                `json:"title,omitempty"`
	Strategy *profile.SiteStrategy `json:"strategy,omitempty"`
	Success  bool                  `json:"success,omitempty"`
	Session  string                `json:"session,omitempty"`
}

// AutomationSession is the persisted execution record for one in-flight
// multi-step automation. Each library-access request creates its own record
// keyed by a fresh ID, so concurrent requests never clobber each other.
type AutomationSession struct {
	ID              string    `json:"id"`
	ReturnToURL     string    `json:"returnToUrl"`
	ClickSelectors  []string  `json:"clickSelectors"`
	CurrentStep     int       `json:"currentStep"`
	ReturnToArticle bool      `json:"returnToArticle"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Exhausted reports whether every click selector has been consumed.
func (s *AutomationSession) Exhausted() bool {
	return s.CurrentStep >= len(s.ClickSelectors)
}

// OpenRequest carries one library-access request.
type OpenRequest struct {
	Domain string
	URL    string
	Title  string
}

// OpenResult acknowledges that a tab has been opened. It is returned as soon
// as navigation has been dispatched; the automation itself keeps running.
type OpenResult struct {
	SessionID string
	TargetURL string
	Fallback  bool
}
