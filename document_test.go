package docmap

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestNew_RoutesMetaAndFields(t *testing.T) {
	post := blogPost(t)
	d, err := post.New(map[string]any{
		"_id":      "1",
		"_routing": "eu",
		"title":    "Hello",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Meta().ID() != "1" || d.Meta().Routing() != "eu" {
		t.Errorf("meta = %v", d.Meta().values)
	}
	if v, _ := d.Field("title"); v != "Hello" {
		t.Errorf("title = %v", v)
	}
	if _, ok := d.Field("_id"); ok {
		t.Error("meta attribute stored as payload")
	}
	if d.DocType() != post {
		t.Error("doc type not bound")
	}
}

func TestNew_UnknownField(t *testing.T) {
	post := blogPost(t)
	for _, key := range []string{"author", "_author"} {
		_, err := post.New(map[string]any{key: "x"})
		if !errors.Is(err, ErrUnknownField) {
			t.Errorf("%s: err = %v, want ErrUnknownField", key, err)
		}
	}
}

func TestDocument_Attr(t *testing.T) {
	post := blogPost(t)
	d, _ := post.New(nil)

	if err := d.SetAttr("_version", int64(4)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.SetAttr("views", 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := d.Attr("_version"); v != int64(4) {
		t.Errorf("_version = %v", v)
	}
	if v, _ := d.Attr("views"); v != 10 {
		t.Errorf("views = %v", v)
	}
	if err := d.SetAttr("missing", 1); !errors.Is(err, ErrUnknownField) {
		t.Errorf("err = %v", err)
	}
}

func TestDocument_String(t *testing.T) {
	post := blogPost(t)
	d, _ := post.New(nil)
	if got := d.String(); got != "Post()" {
		t.Errorf("empty = %q", got)
	}
	d.Meta().Set("id", "1")
	d.Meta().Set("index", "blog")
	if got := d.String(); got != `Post(index="blog", id="1")` {
		t.Errorf("got %q", got)
	}
	d.Meta().Set("doc_type", "post")
	if got := d.String(); got != `Post(index="blog", doc_type="post", id="1")` {
		t.Errorf("got %q", got)
	}
}

func TestFromRecord(t *testing.T) {
	post := blogPost(t)
	d, err := post.FromRecord(Record{
		"_index":   "blog",
		"_type":    "post",
		"_id":      "7",
		"_version": float64(3),
		"found":    true,
		"_source": map[string]any{
			"title":   "Hi",
			"views":   float64(5),
			"tags":    []any{"a"},
			"unknown": "dropped",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Meta().DocType() != "post" || d.Meta().ID() != "7" || d.Meta().Version() != 3 {
		t.Errorf("meta = %v", d.Meta().values)
	}
	if found, _ := d.Meta().Get("found"); found != true {
		t.Errorf("found not kept in meta: %v", d.Meta().Keys())
	}
	if d.Meta().Has("source") {
		t.Errorf("unexpected meta keys %v", d.Meta().Keys())
	}
	if v, _ := d.Field("views"); v != int64(5) {
		t.Errorf("views = %#v", v)
	}
	if _, ok := d.Field("unknown"); ok {
		t.Error("undeclared source key kept")
	}
}

func TestFromRecord_NoSource(t *testing.T) {
	post := blogPost(t)
	d, err := post.FromRecord(Record{"_id": "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p, _ := d.ToPayload(); len(p) != 0 {
		t.Errorf("payload = %v", p)
	}
}

func TestFromRecord_BadValue(t *testing.T) {
	post := blogPost(t)
	_, err := post.FromRecord(Record{"_source": map[string]any{"views": "many"}})
	if err == nil {
		t.Error("expected decode error")
	}
}

func TestToPayload_EmptyStripping(t *testing.T) {
	post := blogPost(t)
	d, _ := post.New(map[string]any{
		"title": "T",
		"tags":  []string{},
		"extra": map[string]any{},
		"views": nil,
	})

	got, err := d.ToPayload()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, map[string]any{"title": "T"}) {
		t.Errorf("payload = %v", got)
	}

	got, err = d.ToPayload(KeepEmpty())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{"title": "T", "tags": []any{}, "extra": map[string]any{}, "views": nil}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("payload = %#v, want %#v", got, want)
	}
}

func TestToPayload_IncludeMeta(t *testing.T) {
	post := blogPost(t)
	d, _ := post.New(map[string]any{"_id": "1", "_routing": "eu", "_result": "created", "title": "T"})

	got, err := d.ToPayload(IncludeMeta())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{
		"_id":      "1",
		"_routing": "eu",
		"_index":   "blog",
		"_type":    "post",
		"_source":  map[string]any{"title": "T"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("payload = %v, want %v", got, want)
	}
}

func TestToPayload_IncludeMetaWildcardIndex(t *testing.T) {
	note := MustDefine("Note", WithField("body", Text()))
	d, _ := note.New(map[string]any{"body": "x"})
	if _, err := d.ToPayload(IncludeMeta()); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	if _, err := d.ToPayload(); err != nil {
		t.Errorf("plain payload: %v", err)
	}
	if err := d.SetAttr("_index", "notes"); err != nil {
		t.Fatalf("set index: %v", err)
	}
	got, err := d.ToPayload(IncludeMeta())
	if err != nil || got["_index"] != "notes" {
		t.Errorf("payload = %v, err = %v", got, err)
	}
}

func TestToPayload_SerializationError(t *testing.T) {
	post := blogPost(t)
	d, _ := post.New(map[string]any{"views": "lots"})
	if _, err := d.ToPayload(); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v", err)
	}
}

func TestToPayload_Date(t *testing.T) {
	ev := MustDefine("Event", WithField("at", Date()))
	d, _ := ev.New(map[string]any{"at": time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)})
	got, _ := d.ToPayload()
	if got["at"] != "2024-01-02T03:04:05Z" {
		t.Errorf("at = %v", got["at"])
	}
}

func TestFullClean(t *testing.T) {
	post := blogPost(t)

	d, _ := post.New(map[string]any{"views": "x"})
	err := d.FullClean()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if !errors.Is(err, errRequired) {
		t.Errorf("missing required title not reported: %v", err)
	}

	d, _ = post.New(map[string]any{"title": "ok", "views": 3})
	if err := d.FullClean(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResolveIndex(t *testing.T) {
	post := blogPost(t)
	d, _ := post.New(nil)

	if got, _ := d.resolveIndex(""); got != "blog" {
		t.Errorf("bound = %q", got)
	}
	d.Meta().Set("index", "blog-2024")
	if got, _ := d.resolveIndex(""); got != "blog-2024" {
		t.Errorf("instance = %q", got)
	}
	if got, _ := d.resolveIndex("explicit"); got != "explicit" {
		t.Errorf("explicit = %q", got)
	}
	if _, err := d.resolveIndex("blog-*"); !errors.Is(err, ErrValidation) {
		t.Errorf("wildcard err = %v", err)
	}
}
