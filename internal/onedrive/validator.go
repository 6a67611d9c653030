package onedrive

import (
	"strings"

	"github.com/google/uuid"

	"github.com/hhi-dashboard/api/pkg/utils"
)

// ClientStateMode selects how clientState values are issued and checked.
type ClientStateMode string

const (
	// ClientStateStatic compares clientState with the shared secret itself.
	ClientStateStatic ClientStateMode = "static"
	// ClientStateHMAC expects "<nonce>.<hex(HMAC-SHA256(secret, nonce))>", as
	// minted by IssueClientState when a subscription is created.
	ClientStateHMAC ClientStateMode = "hmac"
)

// Validator authenticates inbound change notifications.
type Validator struct {
	secret string
	mode   ClientStateMode
}

func NewValidator(secret string, mode ClientStateMode) *Validator {
	if mode != ClientStateStatic {
		mode = ClientStateHMAC
	}
	return &Validator{secret: secret, mode: mode}
}

// Mode returns the configured mode.
func (v *Validator) Mode() ClientStateMode { return v.mode }

// IssueClientState returns the clientState to register with a new subscription.
func (v *Validator) IssueClientState() string {
	if v.mode == ClientStateStatic {
		return v.secret
	}
	nonce := strings.ReplaceAll(uuid.NewString(), "-", "")
	return nonce + "." + utils.HMACSHA256Hex(v.secret, nonce)
}

func (v *Validator) checkClientState(state string) bool {
	if v.mode == ClientStateStatic {
		return utils.ConstantTimeEqual(state, v.secret)
	}
	nonce, sig, ok := strings.Cut(state, ".")
	if !ok || nonce == "" || sig == "" {
		return false
	}
	return utils.ConstantTimeEqual(sig, utils.HMACSHA256Hex(v.secret, nonce))
}

// Validate reports whether n is authentic and well-formed. It never panics.
func (v *Validator) Validate(n ChangeNotification) bool {
	if v == nil || v.secret == "" {
		return false
	}
	if strings.TrimSpace(n.ChangeType) == "" || strings.TrimSpace(n.Resource) == "" || n.ClientState == "" {
		return false
	}
	return v.checkClientState(n.ClientState)
}
