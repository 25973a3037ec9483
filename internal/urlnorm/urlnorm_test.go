package urlnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyIdempotent(t *testing.T) {
	cases := []string{
		"https://www.Example.com/a/b/",
		"http://example.com:80/a",
		"https://example.com:443/a/?x=1#frag",
		"https://example.com/",
	}
	for _, c := range cases {
		k1, err := Key(c)
		require.NoErrorf(t, err, "Key(%q)", c)
		k2, err := Key(k1)
		require.NoErrorf(t, err, "Key(%q)", k1)
		assert.Equalf(t, k2, k1, "normalize not idempotent for %q", c)
	}
}

func TestKeySameLogicalPage(t *testing.T) {
	a, _ := Key("http://e.x/a")
	b, _ := Key("http://e.x/a/")
	assert.Equal(t, b, a, "trailing slash should dedup")

	c, _ := Key("http://www.e.x/a")
	d, _ := Key("http://e.x/a")
	assert.Equal(t, d, c, "www prefix should dedup")

	e, _ := Key("http://e.x/a?x=1#y")
	f, _ := Key("http://e.x/a")
	assert.Equal(t, f, e, "query/fragment should not affect key")
}

func TestKeyUnparseable(t *testing.T) {
	_, err := Key("://not a url")
	assert.Error(t, err, "expected error for unparseable URL")

	_, err = Key("/relative/only")
	assert.Error(t, err, "expected error for host-less URL")
}

func TestJoinStripsFragmentKeepsQuery(t *testing.T) {
	got, err := Join("https://e.x/dir/page", "../other?x=1#frag")
	require.NoError(t, err)
	assert.Equal(t, "https://e.x/other?x=1", got)
}

func TestSameHost(t *testing.T) {
	assert.True(t, SameHost("https://www.e.x/a", "http://e.x/b"), "expected same host across www and scheme")
	assert.False(t, SameHost("https://e.x/a", "https://other.x/a"), "expected different hosts to differ")
}

func TestIsHTTPLike(t *testing.T) {
	cases := map[string]bool{
		"https://e.x/a":   true,
		"http://e.x/a":    true,
		"mailto:a@b.com":  false,
		"tel:+1234567890": false,
		"javascript:void": false,
		"data:text/plain": false,
	}
	for u, want := range cases {
		assert.Equalf(t, want, IsHTTPLike(u), "IsHTTPLike(%q)", u)
	}
}
