package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	ciphertext, err := Encrypt("master-key", "s3cr3t")
	require.NoError(t, err)
	assert.True(t, IsEncrypted(ciphertext))

	plaintext, err := Decrypt("master-key", ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", plaintext)
}

func TestDecryptAcceptsPrefixStripped(t *testing.T) {
	ciphertext, err := Encrypt("master-key", "token-value")
	require.NoError(t, err)

	stripped := stripPrefix(ciphertext)
	plaintext, err := Decrypt("master-key", stripped)
	require.NoError(t, err)
	assert.Equal(t, "token-value", plaintext)
}

func TestDecryptWrongKeyFails(t *testing.T) {
	ciphertext, err := Encrypt("right-key", "payload")
	require.NoError(t, err)

	_, err = Decrypt("wrong-key", ciphertext)
	assert.Error(t, err)
}

func TestIsEncrypted(t *testing.T) {
	assert.True(t, IsEncrypted("ENC:abc"))
	assert.False(t, IsEncrypted("plain"))
	assert.False(t, IsEncrypted("EN"))
}

func TestTwoEncryptionsOfSameInputDiffer(t *testing.T) {
	a, err := Encrypt("k", "same")
	require.NoError(t, err)
	b, err := Encrypt("k", "same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "random nonce should make ciphertexts differ")
}
