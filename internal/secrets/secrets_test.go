package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "givepool/pkg/domain-errors"
)

func TestHashAndVerify(t *testing.T) {
	secret, err := Generate()
	require.NoError(t, err)
	require.NotEmpty(t, secret)

	hash, err := Hash(secret)
	require.NoError(t, err)

	assert.NoError(t, Verify(secret, hash))

	err = Verify("not-the-secret", hash)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestHashRejectsEmptySecret(t *testing.T) {
	_, err := Hash("")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestAdminKeyVerifier(t *testing.T) {
	hash, err := Hash("admin-key")
	require.NoError(t, err)

	v := NewAdminKeyVerifier(hash)
	require.NotNil(t, v)
	assert.NoError(t, v.VerifyAdminKey("admin-key"))
	assert.Error(t, v.VerifyAdminKey("wrong"))

	assert.Nil(t, NewAdminKeyVerifier(""))
}
