// Package sessiondata provides MCP tools for storing arbitrary JSON data in
// the keyed session data store.
package sessiondata

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-prospect-research/pkg/session"
)

// Tool names.
const (
	toolCreate        = "create_new_session"
	toolList          = "list_session_data"
	toolStore         = "store_data_in_session"
	toolRetrieve      = "retrieve_data_from_session"
	toolDeleteKey     = "delete_session_data_by_key"
	toolDeleteSession = "delete_entire_session"

	statusSuccess = "success"
)

type sessionInput struct {
	SessionID string `json:"session_id" jsonschema:"session id"`
}

type keyInput struct {
	SessionID string `json:"session_id" jsonschema:"session id"`
	Key       string `json:"key" jsonschema:"key of the data"`
}

type storeInput struct {
	SessionID string         `json:"session_id" jsonschema:"session id to store data in"`
	Key       string         `json:"key" jsonschema:"key to store the data under"`
	Data      map[string]any `json:"data" jsonschema:"data to store"`
}

type createOutput struct {
	SessionID string `json:"session_id"`
}

type listOutput struct {
	SessionID string   `json:"session_id"`
	Keys      []string `json:"keys"`
}

type statusOutput struct {
	SessionID string `json:"session_id"`
	Key       string `json:"key,omitempty"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

type retrieveOutput struct {
	SessionID string          `json:"session_id"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	Status    string          `json:"status"`
}

type retrieveMissingOutput struct {
	SessionID     string   `json:"session_id"`
	Key           string   `json:"key"`
	Status        string   `json:"status"`
	Message       string   `json:"message"`
	AvailableKeys []string `json:"available_keys"`
}

// Toolkit implements the session data toolkit.
type Toolkit struct {
	name  string
	store session.Store
}

// New creates a session data toolkit.
func New(name string, store session.Store) *Toolkit {
	return &Toolkit{name: name, store: store}
}

// Kind returns the toolkit kind.
func (*Toolkit) Kind() string {
	return "sessiondata"
}

// Name returns the toolkit instance name.
func (t *Toolkit) Name() string {
	return t.name
}

// Tools returns the list of tool names provided by this toolkit.
func (*Toolkit) Tools() []string {
	return []string{toolCreate, toolList, toolStore, toolRetrieve, toolDeleteKey, toolDeleteSession}
}

// Close releases resources. The store is owned by the platform.
func (*Toolkit) Close() error {
	return nil
}

// RegisterTools registers the session data tools with the MCP server.
func (t *Toolkit) RegisterTools(s *mcp.Server) {
	mcp.AddTool(s, &mcp.Tool{
		Name:        toolCreate,
		Description: "Create a new session for data storage and return its id.",
	}, t.handleCreate)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolList,
		Description: "List every key stored in a session, oldest first.",
	}, t.handleList)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolStore,
		Description: "Store a JSON object in a session under a key, replacing any previous value.",
	}, t.handleStore)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolRetrieve,
		Description: "Retrieve data stored in a session by key.",
	}, t.handleRetrieve)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolDeleteKey,
		Description: "Delete one key from a session.",
	}, t.handleDeleteKey)

	mcp.AddTool(s, &mcp.Tool{
		Name:        toolDeleteSession,
		Description: "Delete a session and all of its data.",
	}, t.handleDeleteSession)
}

func (t *Toolkit) handleCreate(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	return jsonResult(createOutput{SessionID: t.store.NewSessionID()})
}

func (t *Toolkit) handleList(ctx context.Context, _ *mcp.CallToolRequest, input sessionInput) (*mcp.CallToolResult, any, error) {
	if err := session.CheckSessionID(input.SessionID); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	keys, err := t.store.ListKeys(ctx, input.SessionID)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if keys == nil {
		keys = []string{}
	}
	return jsonResult(listOutput{SessionID: input.SessionID, Keys: keys})
}

func (t *Toolkit) handleStore(ctx context.Context, _ *mcp.CallToolRequest, input storeInput) (*mcp.CallToolResult, any, error) {
	if err := session.CheckCallerKey(input.SessionID, input.Key); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if input.Data == nil {
		input.Data = map[string]any{}
	}

	if err := session.PutJSON(ctx, t.store, input.SessionID, input.Key, input.Data); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return jsonResult(statusOutput{
		SessionID: input.SessionID,
		Key:       input.Key,
		Status:    statusSuccess,
		Message:   fmt.Sprintf("Data stored under key '%s' in session '%s'", input.Key, input.SessionID),
	})
}

func (t *Toolkit) handleRetrieve(ctx context.Context, _ *mcp.CallToolRequest, input keyInput) (*mcp.CallToolResult, any, error) {
	if err := session.CheckCallerKey(input.SessionID, input.Key); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}

	data, ok, err := t.store.Get(ctx, input.SessionID, input.Key)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if ok {
		return jsonResult(retrieveOutput{SessionID: input.SessionID, Key: input.Key, Data: data, Status: statusSuccess})
	}

	keys, err := t.store.ListKeys(ctx, input.SessionID)
	if err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if keys == nil {
		keys = []string{}
	}
	result, _, _ := jsonResult(retrieveMissingOutput{
		SessionID:     input.SessionID,
		Key:           input.Key,
		Status:        "error",
		Message:       fmt.Sprintf("No data found for key '%s' in session '%s'", input.Key, input.SessionID),
		AvailableKeys: keys,
	})
	result.IsError = true
	return result, nil, nil
}

func (t *Toolkit) handleDeleteKey(ctx context.Context, _ *mcp.CallToolRequest, input keyInput) (*mcp.CallToolResult, any, error) {
	if err := session.CheckCallerKey(input.SessionID, input.Key); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if err := t.store.Delete(ctx, input.SessionID, input.Key); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return jsonResult(statusOutput{
		SessionID: input.SessionID,
		Key:       input.Key,
		Status:    statusSuccess,
		Message:   fmt.Sprintf("Data with key '%s' deleted from session '%s'", input.Key, input.SessionID),
	})
}

func (t *Toolkit) handleDeleteSession(ctx context.Context, _ *mcp.CallToolRequest, input sessionInput) (*mcp.CallToolResult, any, error) {
	if err := session.CheckSessionID(input.SessionID); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	if err := t.store.DeleteSession(ctx, input.SessionID); err != nil {
		return errorResult(err.Error()), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return jsonResult(statusOutput{
		SessionID: input.SessionID,
		Status:    statusSuccess,
		Message:   fmt.Sprintf("Session '%s' and all its data have been deleted", input.SessionID),
	})
}

// errorResult creates an error CallToolResult.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(`{"error": %q}`, msg)},
		},
		IsError: true,
	}
}

// jsonResult marshals v into a success CallToolResult.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult("internal error marshaling response"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}
