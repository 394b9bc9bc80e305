package entity

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/distribution/drawbridge/dbtype"
	"github.com/distribution/drawbridge/digestengine"
	"github.com/distribution/drawbridge/store"
	"github.com/stretchr/testify/require"
)

func newIndex(t *testing.T) *Index {
	t.Helper()
	s, err := store.New(t.TempDir())
	require.NoError(t, err)
	return New(s)
}

func digestOf(t *testing.T, body []byte) digestengine.Set {
	t.Helper()
	w, err := digestengine.NewWriter(io.Discard, []digestengine.Algorithm{digestengine.SHA256})
	require.NoError(t, err)
	_, err = w.Write(body)
	require.NoError(t, err)
	return w.Digests()
}

func metaOf(t *testing.T, body []byte, mediaType string) dbtype.Meta {
	t.Helper()
	return dbtype.Meta{Digest: digestOf(t, body), Size: int64(len(body)), MediaType: mediaType}
}

func mustRepositoryName(t *testing.T, s string) dbtype.RepositoryName {
	t.Helper()
	n, err := dbtype.ParseRepositoryName(s)
	require.NoError(t, err)
	return n
}

func mustTagName(t *testing.T, s string) dbtype.TagName {
	t.Helper()
	n, err := dbtype.ParseTagName(s)
	require.NoError(t, err)
	return n
}

func mustTreePath(t *testing.T, s string) dbtype.TreePath {
	t.Helper()
	p, err := dbtype.ParseTreePath(s)
	require.NoError(t, err)
	return p
}

func TestFullLifecycle(t *testing.T) {
	ix := newIndex(t)

	userCtx := dbtype.UserContext{Name: "alice"}
	require.NoError(t, ix.CreateUser(userCtx, "google", "subject-123"))

	resolved, err := ix.UserBySubject("google", "subject-123")
	require.NoError(t, err)
	require.Equal(t, dbtype.UserName("alice"), resolved)

	repoCtx := dbtype.RepositoryContext{Owner: userCtx, Name: mustRepositoryName(t, "alice/team/proj")}
	require.NoError(t, ix.CreateRepository(repoCtx, dbtype.RepositoryConfig{Public: true}))

	public, err := ix.IsPublic(repoCtx)
	require.NoError(t, err)
	require.True(t, public)

	tagCtx := dbtype.TagContext{Repository: repoCtx, Name: mustTagName(t, "1.0.0")}
	childDigest := digestOf(t, []byte("file-body"))
	entry := dbtype.Entry{Digest: childDigest}
	entryBody, err := json.Marshal(entry)
	require.NoError(t, err)
	require.NoError(t, ix.CreateTag(tagCtx, metaOf(t, entryBody, dbtype.MediaTypeEntry), entryBody, nil))

	tags, err := ix.ListTags(repoCtx)
	require.NoError(t, err)
	require.Equal(t, []string{"1.0.0"}, tags)

	rootCtx := dbtype.TreeContext{Tag: tagCtx, Path: mustTreePath(t, "")}
	manifest := dbtype.Directory{"readme": entry}
	manifestBody, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, ix.CreateTree(rootCtx, metaOf(t, manifestBody, dbtype.MediaTypeDirectory), manifestBody))

	childCtx := dbtype.TreeContext{Tag: tagCtx, Path: mustTreePath(t, "readme")}
	childBody := []byte("file-body")
	require.NoError(t, ix.CreateTree(childCtx, metaOf(t, childBody, "text/plain"), childBody))

	gotMeta, gotBody, err := ix.GetTree(childCtx)
	require.NoError(t, err)
	require.Equal(t, childBody, gotBody)
	require.Equal(t, "text/plain", gotMeta.MediaType)
}

func TestCreateTreeRejectsUnlistedChild(t *testing.T) {
	ix := newIndex(t)

	userCtx := dbtype.UserContext{Name: "alice"}
	require.NoError(t, ix.CreateUser(userCtx, "google", "sub"))
	repoCtx := dbtype.RepositoryContext{Owner: userCtx, Name: mustRepositoryName(t, "alice/proj")}
	require.NoError(t, ix.CreateRepository(repoCtx, dbtype.RepositoryConfig{}))
	tagCtx := dbtype.TagContext{Repository: repoCtx, Name: mustTagName(t, "1.0.0")}
	entryBody := []byte(`{"digest":{}}`)
	require.NoError(t, ix.CreateTag(tagCtx, metaOf(t, entryBody, dbtype.MediaTypeEntry), entryBody, nil))

	rootCtx := dbtype.TreeContext{Tag: tagCtx, Path: mustTreePath(t, "")}
	manifest := dbtype.Directory{}
	manifestBody, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, ix.CreateTree(rootCtx, metaOf(t, manifestBody, dbtype.MediaTypeDirectory), manifestBody))

	childCtx := dbtype.TreeContext{Tag: tagCtx, Path: mustTreePath(t, "unlisted")}
	childBody := []byte("x")
	err = ix.CreateTree(childCtx, metaOf(t, childBody, "text/plain"), childBody)
	require.Error(t, err)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	require.Equal(t, KindBadRequest, ee.Kind)
}

func TestCreateTreeRejectsDigestMismatchAgainstManifest(t *testing.T) {
	ix := newIndex(t)

	userCtx := dbtype.UserContext{Name: "alice"}
	require.NoError(t, ix.CreateUser(userCtx, "google", "sub"))
	repoCtx := dbtype.RepositoryContext{Owner: userCtx, Name: mustRepositoryName(t, "alice/proj")}
	require.NoError(t, ix.CreateRepository(repoCtx, dbtype.RepositoryConfig{}))
	tagCtx := dbtype.TagContext{Repository: repoCtx, Name: mustTagName(t, "1.0.0")}
	entryBody := []byte(`{"digest":{}}`)
	require.NoError(t, ix.CreateTag(tagCtx, metaOf(t, entryBody, dbtype.MediaTypeEntry), entryBody, nil))

	rootCtx := dbtype.TreeContext{Tag: tagCtx, Path: mustTreePath(t, "")}
	wrongDigest := digestOf(t, []byte("not-the-real-body"))
	manifest := dbtype.Directory{"child": dbtype.Entry{Digest: wrongDigest}}
	manifestBody, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, ix.CreateTree(rootCtx, metaOf(t, manifestBody, dbtype.MediaTypeDirectory), manifestBody))

	childCtx := dbtype.TreeContext{Tag: tagCtx, Path: mustTreePath(t, "child")}
	childBody := []byte("actual-body")
	err = ix.CreateTree(childCtx, metaOf(t, childBody, "text/plain"), childBody)
	require.Error(t, err)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	require.Equal(t, KindBadRequest, ee.Kind)
}

func TestCreateRepositoryMissingOwner(t *testing.T) {
	ix := newIndex(t)
	repoCtx := dbtype.RepositoryContext{Owner: dbtype.UserContext{Name: "ghost"}, Name: mustRepositoryName(t, "ghost/proj")}
	err := ix.CreateRepository(repoCtx, dbtype.RepositoryConfig{})
	require.Error(t, err)
	var ee *Error
	require.ErrorAs(t, err, &ee)
	require.Equal(t, KindNotFound, ee.Kind)
}
