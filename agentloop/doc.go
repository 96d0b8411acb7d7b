// Package agentloop runs the tool-calling loop that builds Notion rich text.
//
// A Session sends the conversation to a completion endpoint, executes the
// tool calls in each response in order, and appends their results until the
// model answers without tool calls or the iteration cap is reached. The tool
// set is closed: every call is decoded into one of the Invocation types and
// dispatched by Toolbox.Execute. Read tools query a DocumentService; build
// tools append to the session's rich text buffer and finish_rich_text takes
// the snapshot that becomes the run's output.
//
// # Architecture
//
//   - Session: conversation state, tool dispatch, events and limits.
//   - Profile: model identity, context window and the tool registry.
//   - ToolRegistry: ordered tool definitions and argument decoders.
//   - Toolbox: executes invocations against the document service and buffer.
//   - Driver: runs one session per prompt and writes the result once.
//   - EventEmitter: typed event stream; LogEvents forwards it to slog.
//
// # Quick Start
//
//	profile := agentloop.ProfileFor("openai", "gpt-4.1-mini")
//	driver := agentloop.NewDriver(client, workspace, workspace, profile, nil, logger)
//	res, err := driver.Run(ctx, "Link the page I edited most recently")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(len(res.Segments), "elements written")
package agentloop
