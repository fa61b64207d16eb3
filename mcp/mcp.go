// Package mcp probes the MCP servers declared in the effective settings.
// The remote conversational service executes tools itself; the client only
// verifies the declared servers start and reports what they offer.
package mcp

import (
	"context"
	"os"
	"os/exec"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/parley-dev/parley/config"
	"github.com/parley-dev/parley/errors"
)

// ToolInfo describes one tool offered by a declared server.
type ToolInfo struct {
	Server      string
	Name        string
	Description string
}

// Probe starts each declared server subprocess, lists its tools, and shuts
// it down again. A server that fails to start fails the whole probe so a
// bad declaration is caught before a conversation depends on it.
func Probe(ctx context.Context, servers []config.MCPServer) ([]ToolInfo, error) {
	var tools []ToolInfo
	for _, srv := range servers {
		srvTools, err := probeServer(ctx, srv)
		if err != nil {
			return nil, err
		}
		tools = append(tools, srvTools...)
	}
	return tools, nil
}

func probeServer(ctx context.Context, srv config.MCPServer) ([]ToolInfo, error) {
	cmd := exec.Command(srv.Command, srv.Args...)
	cmd.Stderr = os.Stderr

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "parley", Version: "v1.0.0"}, nil)
	conn, err := client.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		cmd.Process.Kill()
		return nil, errors.Wrapf(err, "failed to connect to MCP server '%s'", srv.Name)
	}
	defer func() {
		conn.Close()
		if cmd.Process != nil {
			cmd.Process.Kill()
		}
	}()

	var tools []ToolInfo
	params := &mcpsdk.ListToolsParams{}
	for {
		list, err := conn.ListTools(ctx, params)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to list tools from MCP server '%s'", srv.Name)
		}
		for _, t := range list.Tools {
			tools = append(tools, ToolInfo{
				Server:      srv.Name,
				Name:        t.Name,
				Description: t.Description,
			})
		}
		if list.NextCursor == "" {
			return tools, nil
		}
		params.Cursor = list.NextCursor
	}
}
