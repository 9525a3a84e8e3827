// Package docmap maps typed documents onto a search engine and translates
// document-level operations (save, update, delete, get, mget) into engine
// requests, keeping instance metadata (id, index, routing, version) in sync
// with the engine.
//
// # Declaring a type
//
//	var Post = docmap.MustDefine("Post",
//	    docmap.WithDocType("post"),
//	    docmap.WithField("title", docmap.Text(docmap.Required())),
//	    docmap.WithField("tags", docmap.Keyword(docmap.Multi())),
//	    docmap.WithField("published", docmap.Date()),
//	    docmap.WithIndex(docmap.IndexConfig{Name: "blog"}),
//	)
//
// # Connecting and writing
//
//	_, _ = docmap.Connect(ctx, "default", docmap.WithRedis("localhost:6379", ""))
//	_ = Post.Init(ctx)
//
//	p, _ := Post.New(map[string]any{"_id": "1", "title": "Hello"})
//	created, _ := p.Save(ctx)
//	_ = p.Update(ctx, map[string]any{"tags": []string{"go"}})
//
// # Reading
//
//	p, _ = Post.Get(ctx, "1")              // nil, nil when missing
//	docs, _ := Post.MGet(ctx, docmap.IDs("1", "2"), docmap.Missing(docmap.MissingSkip))
package docmap
