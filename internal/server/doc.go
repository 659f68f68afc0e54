// Package server implements the MCP (Model Context Protocol) server for
// single-object recognition.
//
// The server exposes the detection pipeline and the feature database through
// JSON-RPC 2.0 so an MCP client can locate the dominant object in a frame,
// identify it against enrolled samples and enroll new ones.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Frames:
//   - image_load: Load image and get metadata, including the minimum region area
//   - image_dimensions: Get width and height
//
// Detection:
//   - object_detect: Locate the dominant object and its oriented box
//   - object_shape_vector: The 9-value shape descriptor of the object
//   - object_embedding_crop: Aligned square crop for an embedding model
//
// Recognition:
//   - object_match: Nearest-neighbour identification against a feature database
//   - object_enroll: Append the object's features under a label
//   - feature_db_info: Rows, labels and dimensions of a feature database
//
// Debug views:
//   - object_label_map: Colourised label map, raw mask or cleaned mask
//   - object_annotate: Candidate boxes with the selected one highlighted
//
// # Caching
//
// Decoded frames are cached by path and re-decoded when the file's size or
// modification time changes, so a camera that overwrites the same file is
// picked up. Feature databases are cached the same way by the features package.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure), -32602 (malformed arguments)
//     or -32601 (unknown method)
//   - message: Human-readable error description
//   - data: The Go error string
//
// A frame in which no object is found is not an error for object_detect,
// object_match, object_label_map and object_annotate, which report
// found=false or render the empty result. object_match also reports a
// database with no comparable row as the unknown label with a reason. Tools
// that need the object's geometry fail with the wrapped
// detection.ErrNoDetection.
//
// # Usage
//
//	cfg, err := config.LoadFromEnv(fsutil.OSFileSystem{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := server.New(cfg, server.WithLogger(log))
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
