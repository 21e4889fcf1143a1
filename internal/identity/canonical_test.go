package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{name: "bare id", raw: "12345", want: "12345"},
		{name: "padded", raw: "  12345 ", want: "12345"},
		{name: "linked device", raw: "12345@lid", want: "12345"},
		{name: "device suffix", raw: "12345:7@s.whatsapp.net", want: "12345"},
		{name: "channel prefix", raw: "tg:12345", want: "12345"},
		{name: "username", raw: "@Alice", want: "@alice"},
		{name: "double at username", raw: "@@alice", want: "@alice"},
		{name: "empty", raw: "   ", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Canonical(tc.raw))
		})
	}
}

func TestCanonicalFormsCompareEqual(t *testing.T) {
	forms := []string{"555", "555@lid", "555:2@s.whatsapp.net", "tg:555"}
	for _, f := range forms {
		assert.Equal(t, Canonical(forms[0]), Canonical(f), "form %q", f)
	}
}

func TestDirectory(t *testing.T) {
	d := NewDirectory()
	d.Learn("@Alice", "tg:1001")
	d.Learn("", "1002")
	d.Learn("1003", "1003@lid")

	assert.Equal(t, "1001", d.Resolve("@alice"))
	assert.Equal(t, "1001", d.Resolve("1001:3@s.whatsapp.net"))
	assert.Equal(t, "@bob", d.Resolve("@Bob"))
	assert.Equal(t, 1, d.Len())

	assert.True(t, d.Same("@ALICE", "1001"))
	assert.False(t, d.Same("@alice", "1002"))
	assert.False(t, d.Same("", ""))
}

func TestNilDirectoryResolve(t *testing.T) {
	var d *Directory
	assert.Equal(t, "42", d.Resolve("42@lid"))
}
