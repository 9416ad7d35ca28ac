// Package xl2times holds build metadata for the xl2times MCP server.
package xl2times

// Version is the server version reported over MCP and by the CLI.
const Version = "0.2.0"
