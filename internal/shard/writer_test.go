package shard

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vgassen/tuchtrecht-crawler/internal/crawl"
)

func testRecords() []crawl.Record {
	return []crawl.Record{
		{Identifier: "ECLI:NL:TAHVD:2024:1", URL: "https://tuchtrecht.overheid.nl/ECLI:NL:TAHVD:2024:1", Content: "eerste uitspraak", Source: crawl.SourceName},
		{Identifier: "ECLI:NL:TAHVD:2024:2", URL: "https://tuchtrecht.overheid.nl/ECLI:NL:TAHVD:2024:2", Content: "tweede uitspraak", Source: crawl.SourceName},
	}
}

func TestWriter_WritesOneJSONObjectPerLine(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	path, err := w.Write(testRecords(), 1)
	require.NoError(t, err)
	require.Equal(t, "shard-00001.jsonl", filepath.Base(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var row map[string]string
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
		lines = append(lines, row)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 2)

	require.Equal(t, "https://tuchtrecht.overheid.nl/ECLI:NL:TAHVD:2024:1", lines[0]["url"])
	require.Equal(t, "eerste uitspraak", lines[0]["content"])
	require.Equal(t, crawl.SourceName, lines[0]["source"])
	// The identifier is internal bookkeeping, not part of the published shape.
	require.NotContains(t, lines[0], "Identifier")
}

func TestWriter_RefusesOverwrite(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	_, err = w.Write(testRecords(), 7)
	require.NoError(t, err)

	_, err = w.Write(testRecords(), 7)
	require.ErrorContains(t, err, "already exists")
}

func TestWriter_NextIndexSkipsExistingShards(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	idx, err := w.NextIndex(1)
	require.NoError(t, err)
	require.Equal(t, 1, idx)

	_, err = w.Write(testRecords(), 1)
	require.NoError(t, err)
	_, err = w.Write(testRecords(), 2)
	require.NoError(t, err)

	idx, err = w.NextIndex(1)
	require.NoError(t, err)
	require.Equal(t, 3, idx)

	idx, err = w.NextIndex(5)
	require.NoError(t, err)
	require.Equal(t, 5, idx)
}

func TestWriter_RefusesEmptyShard(t *testing.T) {
	t.Parallel()

	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	_, err = w.Write(nil, 1)
	require.ErrorContains(t, err, "empty shard")
}
