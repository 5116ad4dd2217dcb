package huggingface

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vgassen/tuchtrecht-crawler/internal/crawl"
)

type hubCall struct {
	path string
	auth string
	body []byte
}

type fakeHub struct {
	createStatus int
	commitStatus int
	calls        []hubCall
}

func (h *fakeHub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		h.calls = append(h.calls, hubCall{
			path: r.URL.Path,
			auth: r.Header.Get("Authorization"),
			body: body,
		})
		switch r.URL.Path {
		case "/api/repos/create":
			w.WriteHeader(h.createStatus)
		case "/api/datasets/vgassen/tuchtrecht/commit/main":
			w.WriteHeader(h.commitStatus)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func writeShardFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shard-00001.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		Endpoint: endpoint,
		Repo:     "vgassen/tuchtrecht",
		Token:    "hf_testtoken",
	}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{Token: "t"}, zap.NewNop())
	require.Error(t, err)

	_, err = NewClient(Config{Repo: "r"}, zap.NewNop())
	require.Error(t, err)
}

func TestClient_UploadCommitsShard(t *testing.T) {
	t.Parallel()

	hub := &fakeHub{createStatus: http.StatusOK, commitStatus: http.StatusOK}
	srv := httptest.NewServer(hub.handler())
	defer srv.Close()

	shard := writeShardFile(t, `{"url":"u","content":"c","source":"Open Data Tuchtrecht"}`+"\n")
	client := newTestClient(t, srv.URL)

	uri, err := client.Upload(context.Background(), shard, "shards/shard-00001.jsonl", crawl.UploadMeta{
		RunID:      "run-1",
		ShardIndex: 1,
		Records:    1,
	})
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/datasets/vgassen/tuchtrecht/resolve/main/shards/shard-00001.jsonl", uri)

	require.Len(t, hub.calls, 2)
	create, commit := hub.calls[0], hub.calls[1]
	require.Equal(t, "/api/repos/create", create.path)
	require.Equal(t, "Bearer hf_testtoken", create.auth)

	var createReq map[string]any
	require.NoError(t, json.Unmarshal(create.body, &createReq))
	require.Equal(t, "dataset", createReq["type"])
	require.Equal(t, "vgassen/tuchtrecht", createReq["name"])

	require.Equal(t, "Bearer hf_testtoken", commit.auth)
	ops := decodeNDJSON(t, commit.body)
	require.Len(t, ops, 2)
	require.Equal(t, "header", ops[0]["key"])
	require.Equal(t, "file", ops[1]["key"])

	file := ops[1]["value"].(map[string]any)
	require.Equal(t, "shards/shard-00001.jsonl", file["path"])
	decoded, err := base64.StdEncoding.DecodeString(file["content"].(string))
	require.NoError(t, err)
	require.Contains(t, string(decoded), "Open Data Tuchtrecht")
}

func TestClient_UploadToleratesExistingRepo(t *testing.T) {
	t.Parallel()

	hub := &fakeHub{createStatus: http.StatusConflict, commitStatus: http.StatusOK}
	srv := httptest.NewServer(hub.handler())
	defer srv.Close()

	shard := writeShardFile(t, "{}\n")
	client := newTestClient(t, srv.URL)

	_, err := client.Upload(context.Background(), shard, "shards/shard-00001.jsonl", crawl.UploadMeta{})
	require.NoError(t, err)
}

func TestClient_UploadRejectedCommit(t *testing.T) {
	t.Parallel()

	hub := &fakeHub{createStatus: http.StatusOK, commitStatus: http.StatusUnauthorized}
	srv := httptest.NewServer(hub.handler())
	defer srv.Close()

	shard := writeShardFile(t, "{}\n")
	client := newTestClient(t, srv.URL)

	_, err := client.Upload(context.Background(), shard, "shards/shard-00001.jsonl", crawl.UploadMeta{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "hub rejected commit")
}

func TestClient_UploadCreateRepoFailure(t *testing.T) {
	t.Parallel()

	hub := &fakeHub{createStatus: http.StatusForbidden, commitStatus: http.StatusOK}
	srv := httptest.NewServer(hub.handler())
	defer srv.Close()

	shard := writeShardFile(t, "{}\n")
	client := newTestClient(t, srv.URL)

	_, err := client.Upload(context.Background(), shard, "shards/shard-00001.jsonl", crawl.UploadMeta{})
	require.Error(t, err)
	// Commit must not be attempted when the repo cannot be ensured.
	require.Len(t, hub.calls, 1)
}

func TestClient_UploadMissingFile(t *testing.T) {
	t.Parallel()

	hub := &fakeHub{createStatus: http.StatusOK, commitStatus: http.StatusOK}
	srv := httptest.NewServer(hub.handler())
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Upload(context.Background(), filepath.Join(t.TempDir(), "absent.jsonl"), "shards/x.jsonl", crawl.UploadMeta{})
	require.Error(t, err)
}

func decodeNDJSON(t *testing.T, body []byte) []map[string]any {
	t.Helper()
	var ops []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 1<<20), 1<<20)
	for sc.Scan() {
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var op map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &op))
		ops = append(ops, op)
	}
	require.NoError(t, sc.Err())
	return ops
}
