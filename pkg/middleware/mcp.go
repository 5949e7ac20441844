// Package middleware provides MCP protocol-level middleware.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const methodToolsCall = "tools/call"

// Tool call outcomes recorded in metrics and logs.
const (
	outcomeOK        = "ok"
	outcomeToolError = "tool_error"
	outcomeFailure   = "failure"
)

type requestIDKey struct{}

// RequestID returns the id assigned to the current tool call, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// MCPToolCallMiddleware creates MCP protocol-level middleware that assigns
// each tools/call request an id, logs its outcome and duration, and records
// them in Prometheus.
//
// Tool errors reported through CallToolResult.IsError count as a distinct
// outcome from protocol failures returned as Go errors.
func MCPToolCallMiddleware() mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if method != methodToolsCall {
				return next(ctx, method, req)
			}

			toolName, err := extractToolName(req)
			if err != nil {
				toolName = "unknown"
			}

			requestID := uuid.NewString()
			ctx = context.WithValue(ctx, requestIDKey{}, requestID)

			start := time.Now()
			result, err := next(ctx, method, req)
			elapsed := time.Since(start)

			outcome := classify(result, err)
			toolCallsTotal.WithLabelValues(toolName, outcome).Inc()
			toolCallDuration.WithLabelValues(toolName).Observe(elapsed.Seconds())

			level := slog.LevelInfo
			if outcome != outcomeOK {
				level = slog.LevelWarn
			}
			slog.Log(ctx, level, "tool call",
				"tool", toolName,
				"request_id", requestID,
				"outcome", outcome,
				"duration_ms", elapsed.Milliseconds(),
			)

			return result, err
		}
	}
}

func classify(result mcp.Result, err error) string {
	if err != nil {
		return outcomeFailure
	}
	if r, ok := result.(*mcp.CallToolResult); ok && r != nil && r.IsError {
		return outcomeToolError
	}
	return outcomeOK
}

// extractToolName extracts the tool name from a tools/call request.
func extractToolName(req mcp.Request) (string, error) {
	if req == nil {
		return "", errors.New("missing request")
	}
	params := req.GetParams()
	if params == nil {
		return "", errors.New("missing params")
	}

	callParams, ok := params.(*mcp.CallToolParamsRaw)
	if !ok {
		return "", fmt.Errorf("unexpected params type: %T", params)
	}
	// The type assertion succeeds for a typed nil pointer.
	if callParams == nil {
		return "", errors.New("missing params")
	}
	if callParams.Name == "" {
		return "", errors.New("missing tool name")
	}
	return callParams.Name, nil
}
