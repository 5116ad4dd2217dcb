package sru

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFlattenText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "nested elements",
			raw:  "<uitspraak><kop>Beslissing</kop><para>Some text</para><para>More text</para></uitspraak>",
			want: "Beslissing Some text More text",
		},
		{
			name: "whitespace collapsed",
			raw:  "<root>\n  <p>  spaced  </p>\n</root>",
			want: "spaced",
		},
		{
			name: "attributes ignored",
			raw:  `<root status="definitief"><p>tekst</p></root>`,
			want: "tekst",
		},
		{
			name: "empty fragment",
			raw:  "",
			want: "",
		},
		{
			name: "truncated input keeps collected text",
			raw:  "<root><p>partial</p><p>cut of",
			want: "partial cut of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, FlattenText(tt.raw))
		})
	}
}

func TestFirstElementText(t *testing.T) {
	t.Parallel()

	raw := `<data><dcterms:identifier xmlns:dcterms="http://purl.org/dc/terms/">ECLI:NL:X:1</dcterms:identifier><identifier>second</identifier></data>`
	require.Equal(t, "ECLI:NL:X:1", firstElementText(raw, "identifier"))
	require.Equal(t, "", firstElementText(raw, "missing"))
}
