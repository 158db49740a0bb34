// Package markup parses HTML and XML into record-shaped nodes and adds the node-aware
// operations migrations of markup sources need: CSS selection, text content, node
// names and entity encoding.
//
// A *Node is a ports.Record whose fields are the attributes of its first element, so a
// SubRecord over a node reads attributes with Take:
//
//	markup.CSS(rc, "specifications > *").EachSubrecord(func(sub pipeline.Context) error {
//		markup.TakeNodeName(sub, pipeline.PutAs("key"))
//		markup.TakeContent(sub, pipeline.PutAs("value"))
//		return nil
//	}, pipeline.FlushEach(), pipeline.ResetEach())
package markup
