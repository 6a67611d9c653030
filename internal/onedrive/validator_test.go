package onedrive

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hhi-dashboard/api/pkg/utils"
)

const secret = "hhi-shared-client-state-secret"

func TestStaticValidator(t *testing.T) {
	v := NewValidator(secret, ClientStateStatic)
	valid := ChangeNotification{ChangeType: "updated", Resource: "/drives/X/items/Y", ClientState: secret}
	assert.True(t, v.Validate(valid))

	missingChangeType := valid
	missingChangeType.ChangeType = ""
	assert.False(t, v.Validate(missingChangeType))

	missingResource := valid
	missingResource.Resource = ""
	assert.False(t, v.Validate(missingResource))

	missingClientState := valid
	missingClientState.ClientState = ""
	assert.False(t, v.Validate(missingClientState))

	wrongClientState := valid
	wrongClientState.ClientState = secret + "x"
	assert.False(t, v.Validate(wrongClientState))
}

func TestStaticValidatorAcceptsOtherChangeTypes(t *testing.T) {
	v := NewValidator(secret, ClientStateStatic)
	n := ChangeNotification{ChangeType: "deleted", Resource: "/drives/X/items/Y", ClientState: secret}
	assert.True(t, v.Validate(n))
}

func TestHMACValidator(t *testing.T) {
	v := NewValidator(secret, ClientStateHMAC)
	assert.Equal(t, ClientStateHMAC, v.Mode())

	state := v.IssueClientState()
	assert.NotEqual(t, state, v.IssueClientState())
	assert.LessOrEqual(t, len(state), 128)

	n := ChangeNotification{SubscriptionID: "sub-1", ChangeType: "updated", Resource: "/drives/X/items/Y", ClientState: state}
	assert.True(t, v.Validate(n))

	// The raw secret is not accepted in HMAC mode.
	raw := n
	raw.ClientState = secret
	assert.False(t, v.Validate(raw))

	forged := n
	forged.ClientState = "nonce." + utils.HMACSHA256Hex("other-secret", "nonce")
	assert.False(t, v.Validate(forged))

	signed := n
	signed.ClientState = "nonce." + utils.HMACSHA256Hex(secret, "nonce")
	assert.True(t, v.Validate(signed))

	noSig := n
	noSig.ClientState = "nonce."
	assert.False(t, v.Validate(noSig))
}

func TestStaticIssueReturnsSecret(t *testing.T) {
	assert.Equal(t, secret, NewValidator(secret, ClientStateStatic).IssueClientState())
}

func TestValidatorWithoutSecretRejectsEverything(t *testing.T) {
	v := NewValidator("", ClientStateStatic)
	assert.False(t, v.Validate(ChangeNotification{ChangeType: "updated", Resource: "r", ClientState: ""}))

	var nilValidator *Validator
	assert.False(t, nilValidator.Validate(ChangeNotification{ChangeType: "updated", Resource: "r", ClientState: "x"}))
}

func TestUnknownModeDefaultsToHMAC(t *testing.T) {
	assert.Equal(t, ClientStateHMAC, NewValidator(secret, "bogus").Mode())
}
