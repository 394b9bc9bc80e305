package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/distribution/drawbridge/dbtype"
	"github.com/distribution/drawbridge/digestengine"
	"github.com/distribution/drawbridge/entity"
	"github.com/distribution/drawbridge/store"
)

// fakeVerifier treats the bearer token itself as the subject, for a single
// fixed provider name, letting tests link a user to "alice-token" and then
// authenticate as "alice-token" without a real OIDC round trip.
type fakeVerifier struct {
	provider string
}

func (f fakeVerifier) Verify(ctx context.Context, bearer string) (string, string, error) {
	return f.provider, bearer, nil
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	s, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error opening store: %v", err)
	}
	version, err := dbtype.ParseSemVer("1.0.0")
	if err != nil {
		t.Fatalf("unexpected error parsing version: %v", err)
	}
	return NewApp(entity.New(s), fakeVerifier{provider: "test"}, version)
}

func digestHeader(t *testing.T, body []byte) string {
	t.Helper()
	w, err := digestengine.NewWriter(bytes.NewBuffer(nil), []digestengine.Algorithm{digestengine.SHA256})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := w.Write(body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h, err := w.Digests().Format()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return h
}

func putRequest(t *testing.T, path, bearer, contentType string, body []byte) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(body))
	r.Header.Set("Content-Digest", digestHeader(t, body))
	r.Header.Set("Content-Length", strconv.Itoa(len(body)))
	r.Header.Set("Content-Type", contentType)
	if bearer != "" {
		r.Header.Set("Authorization", "Bearer "+bearer)
	}
	return r
}

func createUser(t *testing.T, app *App, name, bearer string) {
	t.Helper()
	record := dbtype.UserRecord{Provider: "test", Subject: bearer}
	body, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := putRequest(t, "/api/v1.0.0/"+name, bearer, "application/json", body)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("creating user %s: expected 201, got %d: %s", name, w.Code, w.Body.String())
	}
}

func createRepository(t *testing.T, app *App, path, bearer string, public bool) {
	t.Helper()
	body, err := json.Marshal(dbtype.RepositoryConfig{Public: public})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := putRequest(t, "/api/v1.0.0/"+path, bearer, "application/json", body)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("creating repository %s: expected 201, got %d: %s", path, w.Code, w.Body.String())
	}
}

// createRootDirectory uploads the root directory node of a tag's tree,
// listing each named child with the digest of its body, so that the
// children can then be uploaded beneath it.
func createRootDirectory(t *testing.T, app *App, tagPath, bearer string, children map[string][]byte) {
	t.Helper()
	manifest := dbtype.Directory{}
	for name, body := range children {
		set, err := digestengine.ParseSet(digestHeader(t, body))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		manifest[dbtype.TreeEntryName(name)] = dbtype.Entry{Digest: set}
	}
	body, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := putRequest(t, "/api/v1.0.0/"+tagPath+"/tree", bearer, dbtype.MediaTypeDirectory, body)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("creating root directory of %s: expected 201, got %d: %s", tagPath, w.Code, w.Body.String())
	}
}

func TestCreateAndReadPublicRepo(t *testing.T) {
	app := newTestApp(t)
	createUser(t, app, "alice", "alice-token")
	createRepository(t, app, "alice/proj", "alice-token", true)

	r := httptest.NewRequest(http.MethodGet, "/api/v1.0.0/alice/proj", nil)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for unauthenticated read of public repo, got %d: %s", w.Code, w.Body.String())
	}
	var config dbtype.RepositoryConfig
	if err := json.Unmarshal(w.Body.Bytes(), &config); err != nil {
		t.Fatalf("unexpected error decoding body: %v", err)
	}
	if !config.Public {
		t.Fatal("expected public:true")
	}
}

func TestTagLifecycle(t *testing.T) {
	app := newTestApp(t)
	createUser(t, app, "alice", "alice-token")
	createRepository(t, app, "alice/proj", "alice-token", true)

	entry := dbtype.Entry{Digest: digestengine.Set{digestengine.SHA256: make([]byte, 32)}}
	entryBody, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := putRequest(t, "/api/v1.0.0/alice/proj/_tag/0.1.0", "alice-token", dbtype.MediaTypeEntry, entryBody)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating tag, got %d: %s", w.Code, w.Body.String())
	}

	qr := httptest.NewRequest(http.MethodGet, "/api/v1.0.0/alice/proj/_tag", nil)
	qw := httptest.NewRecorder()
	app.ServeHTTP(qw, qr)
	if qw.Code != http.StatusOK {
		t.Fatalf("expected 200 querying tag index, got %d: %s", qw.Code, qw.Body.String())
	}
	var tags []string
	if err := json.Unmarshal(qw.Body.Bytes(), &tags); err != nil {
		t.Fatalf("unexpected error decoding tag index: %v", err)
	}
	if len(tags) != 1 || tags[0] != "0.1.0" {
		t.Fatalf("expected [\"0.1.0\"], got %v", tags)
	}

	// A second PUT of the same tag conflicts.
	r2 := putRequest(t, "/api/v1.0.0/alice/proj/_tag/0.1.0", "alice-token", dbtype.MediaTypeEntry, entryBody)
	w2 := httptest.NewRecorder()
	app.ServeHTTP(w2, r2)
	if w2.Code != http.StatusConflict {
		t.Fatalf("expected 409 re-creating tag, got %d: %s", w2.Code, w2.Body.String())
	}
}

func TestFileUploadDigestVerification(t *testing.T) {
	app := newTestApp(t)
	createUser(t, app, "alice", "alice-token")
	createRepository(t, app, "alice/proj", "alice-token", true)

	entry := dbtype.Entry{Digest: digestengine.Set{digestengine.SHA256: make([]byte, 32)}}
	entryBody, _ := json.Marshal(entry)
	tr := putRequest(t, "/api/v1.0.0/alice/proj/_tag/0.1.0", "alice-token", dbtype.MediaTypeEntry, entryBody)
	tw := httptest.NewRecorder()
	app.ServeHTTP(tw, tr)
	if tw.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating tag, got %d: %s", tw.Code, tw.Body.String())
	}

	body := []byte("hello")
	createRootDirectory(t, app, "alice/proj/_tag/0.1.0", "alice-token", map[string][]byte{"hello.txt": body})
	r := putRequest(t, "/api/v1.0.0/alice/proj/_tag/0.1.0/tree/hello.txt", "alice-token", "text/plain", body)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 uploading file, got %d: %s", w.Code, w.Body.String())
	}

	gr := httptest.NewRequest(http.MethodGet, "/api/v1.0.0/alice/proj/_tag/0.1.0/tree/hello.txt", nil)
	gw := httptest.NewRecorder()
	app.ServeHTTP(gw, gr)
	if gw.Code != http.StatusOK {
		t.Fatalf("expected 200 reading file, got %d: %s", gw.Code, gw.Body.String())
	}
	if gw.Body.String() != "hello" {
		t.Fatalf("expected body %q, got %q", "hello", gw.Body.String())
	}
	if gw.Header().Get("Content-Digest") != digestHeader(t, body) {
		t.Fatalf("expected Content-Digest to echo the stored digest")
	}
}

func TestFileUploadDigestMismatch(t *testing.T) {
	app := newTestApp(t)
	createUser(t, app, "alice", "alice-token")
	createRepository(t, app, "alice/proj", "alice-token", true)

	entry := dbtype.Entry{Digest: digestengine.Set{digestengine.SHA256: make([]byte, 32)}}
	entryBody, _ := json.Marshal(entry)
	tr := putRequest(t, "/api/v1.0.0/alice/proj/_tag/0.1.0", "alice-token", dbtype.MediaTypeEntry, entryBody)
	tw := httptest.NewRecorder()
	app.ServeHTTP(tw, tr)
	if tw.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating tag, got %d: %s", tw.Code, tw.Body.String())
	}

	createRootDirectory(t, app, "alice/proj/_tag/0.1.0", "alice-token", map[string][]byte{"hello.txt": []byte("hello")})

	// Compute the header for "hello" but send "world": the dispatcher
	// streams the body the client actually sent through a verifier keyed
	// on the header it claimed, so this must fail closed.
	r := httptest.NewRequest(http.MethodPut, "/api/v1.0.0/alice/proj/_tag/0.1.0/tree/hello.txt", bytes.NewReader([]byte("world")))
	r.Header.Set("Content-Digest", digestHeader(t, []byte("hello")))
	r.Header.Set("Content-Length", "5")
	r.Header.Set("Content-Type", "text/plain")
	r.Header.Set("Authorization", "Bearer alice-token")
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on digest mismatch, got %d: %s", w.Code, w.Body.String())
	}

	gr := httptest.NewRequest(http.MethodGet, "/api/v1.0.0/alice/proj/_tag/0.1.0/tree/hello.txt", nil)
	gw := httptest.NewRecorder()
	app.ServeHTTP(gw, gr)
	if gw.Code != http.StatusNotFound {
		t.Fatalf("expected 404 reading a half-written entity, got %d: %s", gw.Code, gw.Body.String())
	}
}

func TestCrossUserWriteDenied(t *testing.T) {
	app := newTestApp(t)
	createUser(t, app, "alice", "alice-token")
	createUser(t, app, "bob", "bob-token")

	body, _ := json.Marshal(dbtype.RepositoryConfig{Public: false})
	r := putRequest(t, "/api/v1.0.0/alice/proj", "bob-token", "application/json", body)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for cross-user write, got %d: %s", w.Code, w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("alice")) {
		t.Fatalf("expected error detail to mention the correct owner, got %s", w.Body.String())
	}
}

func TestPrivateRepoRequiresAuth(t *testing.T) {
	app := newTestApp(t)
	createUser(t, app, "alice", "alice-token")
	createRepository(t, app, "alice/proj", "alice-token", false)

	entry := dbtype.Entry{Digest: digestengine.Set{digestengine.SHA256: make([]byte, 32)}}
	entryBody, _ := json.Marshal(entry)
	tr := putRequest(t, "/api/v1.0.0/alice/proj/_tag/0.1.0", "alice-token", dbtype.MediaTypeEntry, entryBody)
	tw := httptest.NewRecorder()
	app.ServeHTTP(tw, tr)
	if tw.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating tag, got %d: %s", tw.Code, tw.Body.String())
	}

	r := httptest.NewRequest(http.MethodGet, "/api/v1.0.0/alice/proj/_tag/0.1.0", nil)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unauthenticated read of a private repo's tag, got %d: %s", w.Code, w.Body.String())
	}

	ar := httptest.NewRequest(http.MethodGet, "/api/v1.0.0/alice/proj/_tag/0.1.0", nil)
	ar.Header.Set("Authorization", "Bearer alice-token")
	aw := httptest.NewRecorder()
	app.ServeHTTP(aw, ar)
	if aw.Code != http.StatusOK {
		t.Fatalf("expected 200 for the owner's authenticated read, got %d: %s", aw.Code, aw.Body.String())
	}
}

func TestVersionGateRejectsNewerMajor(t *testing.T) {
	app := newTestApp(t)
	r := httptest.NewRequest(http.MethodGet, "/api/v2.0.0/alice", nil)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501 for a request at a newer major version, got %d: %s", w.Code, w.Body.String())
	}
}

func TestVersionGateAcceptsServerVersion(t *testing.T) {
	app := newTestApp(t)
	createUser(t, app, "alice", "alice-token")

	r := httptest.NewRequest(http.MethodGet, "/api/v1.0.0/alice", nil)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 at the server's own version, got %d: %s", w.Code, w.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	app := newTestApp(t)
	createUser(t, app, "alice", "alice-token")

	r := httptest.NewRequest(http.MethodDelete, "/api/v1.0.0/alice", nil)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, r)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for DELETE, got %d: %s", w.Code, w.Body.String())
	}
	if w.Header().Get("Allow") == "" {
		t.Fatal("expected an Allow header on 405")
	}
}
