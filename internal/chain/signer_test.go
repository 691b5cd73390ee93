package chain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerFromSeed(t *testing.T) {
	seed := make([]byte, 32)
	seed[0] = 1
	s, err := NewSigner(seed)
	require.NoError(t, err)
	assert.NotEmpty(t, s.Address())
	assert.Len(t, s.Public(), 32)
}

func TestSignerRejectsShortSeed(t *testing.T) {
	_, err := NewSigner([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestSignerFromSURIDeterministic(t *testing.T) {
	a1, err := SignerFromSURI("//Alice")
	require.NoError(t, err)
	a2, err := SignerFromSURI("//Alice")
	require.NoError(t, err)
	b, err := SignerFromSURI("//Bob")
	require.NoError(t, err)

	assert.Equal(t, a1.Address(), a2.Address())
	assert.NotEqual(t, a1.Address(), b.Address())
}

func TestSignerFromHexSeed(t *testing.T) {
	suri := "0x" + strings.Repeat("11", 32)
	s, err := SignerFromSURI(suri)
	require.NoError(t, err)
	assert.NotEmpty(t, s.Address())

	_, err = SignerFromSURI("0xzz")
	require.Error(t, err)
}

func TestSignAndVerify(t *testing.T) {
	s, err := GenerateSigner()
	require.NoError(t, err)

	msg := []byte("deploy flipper")
	sig := s.Sign(msg)
	assert.True(t, s.Verify(msg, sig))
	assert.False(t, s.Verify([]byte("other"), sig))
}

func TestSS58AddressShape(t *testing.T) {
	s, err := SignerFromSURI("//Alice")
	require.NoError(t, err)

	addr := s.Address()
	// generic substrate addresses start with 5 and are base58
	assert.True(t, strings.HasPrefix(addr, "5"), "address %q should start with 5", addr)
	for _, c := range addr {
		assert.Contains(t, base58Alphabet, string(c))
	}
}
