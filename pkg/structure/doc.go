/*
Package structure assembles nested output values without pre-allocating every level.

A Node is an addressing handle. Walking to a child (Key, Index, Append) never allocates;
the first write below a node materializes every missing ancestor, root first, and attaches
each new container to its parent by key or by append.

	b := structure.New()
	b.Bury("ok", "array", nil, "item")  // {array: [{item: ok}]}
	b.Bury(5, "array", -1, "coolness")  // {array: [{item: ok, coolness: 5}]}

The first access to a node decides its kind: string keys imply a map, Append implies an
array, and integer indexes accept either (preferring an array when nothing else was said).
A later access that is incompatible with the decided kind fails with a *domain.StructureError.
*/
package structure
