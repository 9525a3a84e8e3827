package docmap

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestNewIndex_Defaults(t *testing.T) {
	idx := NewIndex("", "")
	if idx.Name() != "*" || idx.Using() != DefaultUsing {
		t.Errorf("got name=%q using=%q", idx.Name(), idx.Using())
	}
	if DefaultIndex.Name() != "*" {
		t.Errorf("default index name = %q", DefaultIndex.Name())
	}
}

func TestIndex_Body(t *testing.T) {
	post := blogPost(t)
	idx := post.Index()
	idx.Settings(map[string]any{"number_of_shards": 1}).
		Aliases(map[string]any{"blog-read": map[string]any{}}).
		Analyzer(Analyzer{Name: "folding", Definition: map[string]any{"tokenizer": "standard"}})

	body := idx.Body()
	settings, _ := body["settings"].(map[string]any)
	if settings["number_of_shards"] != 1 {
		t.Errorf("settings = %v", settings)
	}
	wantAnalysis := map[string]any{"analyzer": map[string]any{"folding": map[string]any{"tokenizer": "standard"}}}
	if !reflect.DeepEqual(settings["analysis"], wantAnalysis) {
		t.Errorf("analysis = %v", settings["analysis"])
	}
	if _, ok := body["aliases"].(map[string]any)["blog-read"]; !ok {
		t.Errorf("aliases = %v", body["aliases"])
	}
	mappings, _ := body["mappings"].(map[string]any)
	if !reflect.DeepEqual(mappings["post"], post.Schema().Mapping()) {
		t.Errorf("mappings = %v", mappings)
	}
}

func TestIndex_EmptyBody(t *testing.T) {
	if body := NewIndex("x", "").Body(); len(body) != 0 {
		t.Errorf("body = %v, want empty", body)
	}
}

func TestIndex_AnalyzerReplace(t *testing.T) {
	idx := NewIndex("x", "").
		Analyzer(Analyzer{Name: "a", Definition: map[string]any{"v": 1}}).
		Analyzer(Analyzer{Name: "a", Definition: map[string]any{"v": 2}})
	an := idx.Body()["settings"].(map[string]any)["analysis"].(map[string]any)["analyzer"].(map[string]any)
	if len(an) != 1 || an["a"].(map[string]any)["v"] != 2 {
		t.Errorf("analyzers = %v", an)
	}
}

func TestIndex_Clone(t *testing.T) {
	post := blogPost(t)
	orig := post.Index().Settings(map[string]any{"refresh_interval": "1s"})
	cl := orig.Clone("blog-v2")

	if cl.Name() != "blog-v2" || cl.Using() != orig.Using() {
		t.Errorf("clone name=%q using=%q", cl.Name(), cl.Using())
	}
	cl.Settings(map[string]any{"refresh_interval": "30s"})
	if orig.Body()["settings"].(map[string]any)["refresh_interval"] != "1s" {
		t.Error("clone shares settings with the original")
	}
	if len(cl.Documents()) != 1 || cl.Documents()[0] != post {
		t.Errorf("clone documents = %v", cl.Documents())
	}
	if orig.Clone("").Name() != "blog" {
		t.Error("empty clone name must keep the original")
	}
}

func TestIndex_DocumentOnce(t *testing.T) {
	post := blogPost(t)
	post.Index().Document(post)
	if n := len(post.Index().Documents()); n != 1 {
		t.Errorf("documents = %d, want 1", n)
	}
}

func TestIndex_BodyMergesSharedDocType(t *testing.T) {
	idx := NewIndex("things", "")
	parent := MustDefine("Parent", WithField("a", Keyword()), WithField("b", Keyword()))
	child := MustDefine("Child", Extends(parent), WithField("b", Text()),
		WithMetaField("routing", map[string]any{"required": true}))
	idx.Document(parent).Document(child)

	mappings := idx.Body()["mappings"].(map[string]any)
	if len(mappings) != 1 {
		t.Fatalf("mappings = %v", mappings)
	}
	doc := mappings[DefaultDocType].(map[string]any)
	props := doc["properties"].(map[string]any)
	if props["a"].(map[string]any)["type"] != KindKeyword {
		t.Errorf("a = %v", props["a"])
	}
	if props["b"].(map[string]any)["type"] != KindText {
		t.Errorf("b = %v, want the later registration", props["b"])
	}
	if _, ok := doc["_routing"]; !ok {
		t.Errorf("doc mapping = %v", doc)
	}
}

func TestIndex_Save(t *testing.T) {
	f := newFake(t)
	post := blogPost(t)

	if err := post.Index().Save(context.Background(), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.calls) != 1 || f.calls[0].op != "create_index" || f.calls[0].index != "blog" {
		t.Fatalf("calls = %+v", f.calls)
	}
	if !reflect.DeepEqual(f.calls[0].body, post.Index().Body()) {
		t.Errorf("body = %v", f.calls[0].body)
	}
}

func TestIndex_SaveErrors(t *testing.T) {
	f := newFake(t)

	err := DefaultIndex.Save(context.Background(), "")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("wildcard: err = %v, want ErrValidation", err)
	}
	expectNoCalls(t, f)

	err = NewIndex("x", "").Save(context.Background(), "nope")
	if !errors.Is(err, ErrUnknownConnection) {
		t.Errorf("unknown alias: err = %v", err)
	}

	f.createIndexFn = func(string, map[string]any) error { return ErrIndexExists }
	err = NewIndex("x", "").Save(context.Background(), "")
	if !errors.Is(err, ErrIndexExists) {
		t.Errorf("exists: err = %v", err)
	}
}
