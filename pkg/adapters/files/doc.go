// Package files provides a Source over the files of a directory.
//
// Records are keyed by the name used to select the file (relative to the directory) and
// expose its contents lazily, together with its path and stat information:
//
//	src := files.New("data/json", files.WithGlob("**/*.json"))
//	engine.Migrate(ctx, src, sink, func(rc pipeline.Context) error {
//		rc.Take("content").ParseJSON(...)
//		return nil
//	})
package files
