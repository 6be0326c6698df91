// Package mcpserver provides the operator surface of the build worker as a
// Model Context Protocol (MCP) server.
//
// The server exposes three tools built on the mark3labs/mcp-go library:
// enqueue_build pushes a deployment id onto the build queue, queue_size
// reports the queue length, and get_deployment returns a deployment record as
// JSON. It is served over stdio or over HTTP, where a chi router adds a
// /healthz probe next to the streamable MCP endpoint at /mcp.
//
// Usage:
//
//	server, err := mcpserver.New(config, logger, queue, repository)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = server.ServeStdio(ctx) // or server.ListenAndServe(ctx)
package mcpserver
