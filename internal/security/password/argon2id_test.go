package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	phc, err := Hash(Default, "super-secret")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(phc, "$argon2id$v=19$"))

	assert.True(t, Verify("super-secret", phc))
	assert.False(t, Verify("wrong", phc))
}

func TestHashRejectsEmpty(t *testing.T) {
	_, err := Hash(Default, "")
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	assert.False(t, Verify("x", "not-a-phc-string"))
	assert.False(t, Verify("x", "$argon2id$v=18$m=1,t=1,p=1$aaaa$bbbb"))
}
