package server

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// Client calls a tally server.
type Client struct {
	createSession  *connect.Client[CreateSessionRequest, CreateSessionResponse]
	destroySession *connect.Client[DestroySessionRequest, DestroySessionResponse]
	evaluate       *connect.Client[EvaluateRequest, EvaluateResponse]
	compile        *connect.Client[CompileRequest, CompileResponse]
}

// NewClient creates a client for the server at baseURL, e.g.
// "http://localhost:8710". A nil httpClient uses http.DefaultClient.
func NewClient(httpClient connect.HTTPClient, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL = strings.TrimRight(baseURL, "/")
	codec := connect.WithCodec(Codec{})
	return &Client{
		createSession:  connect.NewClient[CreateSessionRequest, CreateSessionResponse](httpClient, baseURL+CreateSessionProcedure, codec),
		destroySession: connect.NewClient[DestroySessionRequest, DestroySessionResponse](httpClient, baseURL+DestroySessionProcedure, codec),
		evaluate:       connect.NewClient[EvaluateRequest, EvaluateResponse](httpClient, baseURL+EvaluateProcedure, codec),
		compile:        connect.NewClient[CompileRequest, CompileResponse](httpClient, baseURL+CompileProcedure, codec),
	}
}

// CreateSession opens a session and returns its ID.
func (c *Client) CreateSession(ctx context.Context, name string) (string, error) {
	resp, err := c.createSession.CallUnary(ctx, connect.NewRequest(&CreateSessionRequest{Name: name}))
	if err != nil {
		return "", err
	}
	return resp.Msg.SessionID, nil
}

// DestroySession closes a session.
func (c *Client) DestroySession(ctx context.Context, id string) error {
	_, err := c.destroySession.CallUnary(ctx, connect.NewRequest(&DestroySessionRequest{SessionID: id}))
	return err
}

// Evaluate runs code on a session.
func (c *Client) Evaluate(ctx context.Context, req *EvaluateRequest) (*EvaluateResponse, error) {
	resp, err := c.evaluate.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

// Compile compiles source on the server.
func (c *Client) Compile(ctx context.Context, source string) (*CompileResponse, error) {
	resp, err := c.compile.CallUnary(ctx, connect.NewRequest(&CompileRequest{Source: source}))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
