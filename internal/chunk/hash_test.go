package chunk

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashDeterministic(t *testing.T) {
	data := bytes.Repeat([]byte("a"), Size)
	d1 := Hash(data)
	d2 := Hash(data)
	assert.Equal(t, d1, d2)
}

func TestHashDiffersOnContent(t *testing.T) {
	a := bytes.Repeat([]byte("a"), Size)
	b := bytes.Repeat([]byte("b"), Size)
	assert.NotEqual(t, Hash(a), Hash(b))
}

func TestVerify(t *testing.T) {
	data := []byte("hello world")
	d := Hash(data)
	assert.True(t, Verify(d, data))
	assert.False(t, Verify(d, []byte("hello worlx")))
}

func TestDigestBase64RoundTrip(t *testing.T) {
	d := Hash([]byte("round trip me"))
	s := d.String()
	assert.Len(t, s, 43) // 32 bytes base64url nopad == 43 chars

	back, err := DigestFromBase64(s)
	require.NoError(t, err)
	assert.Equal(t, d, back)
}

func TestDigestCompareOrdersLexicographically(t *testing.T) {
	var a, b Digest
	a[0] = 0x01
	b[0] = 0x02
	assert.Negative(t, a.Compare(b))
	assert.Positive(t, b.Compare(a))
	assert.Zero(t, a.Compare(a))
}

func TestPadShortBlock(t *testing.T) {
	short := []byte("abc")
	padded := Pad(short)
	require.Len(t, padded, Size)
	assert.True(t, bytes.Equal(padded[:3], short))
	assert.True(t, bytes.Equal(padded[3:], make([]byte, Size-3)))
}

func TestPadExactBlockNoCopy(t *testing.T) {
	exact := bytes.Repeat([]byte("z"), Size)
	padded := Pad(exact)
	assert.Equal(t, exact, padded)
	assert.True(t, &padded[0] == &exact[0], "an exact-size block is returned without copying")
}

func TestZeroSentinelNeverEqualsRealHash(t *testing.T) {
	d := Hash([]byte("anything"))
	assert.NotEqual(t, Zero, d)
	assert.True(t, Zero.IsZero())
	assert.False(t, d.IsZero())
}
