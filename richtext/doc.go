// Package richtext models the ordered rich-text payload an agent session builds
// for a Notion callout block.
//
// A payload is a sequence of Segment values. Two variants exist: Text (a run of
// plain or bold text) and Mention (a clickable reference to a page). Segments
// are collected in a Buffer, which only ever grows by appending, so the order of
// the finished payload is exactly the order of the append calls.
//
//	buf := richtext.NewBuffer()
//	buf.AppendText("Recently edited:\n", true)
//	buf.AppendPageMention("2a319740-7c23-8004-b792-f09b1c282df0")
//	segments, n := buf.Finish()
//
// Segments marshal to the Notion API rich_text object format.
package richtext
