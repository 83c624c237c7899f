package collab

import (
	"context"
	"fmt"
	"net/url"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type loginRequest struct {
	Username string `json:"username"`
}

// Login registers a username with the relay and returns the connection id to
// open the session with. The relay answers with a redirect to
// /?id=<uuid>; anything else, including a redirect back to the login page,
// means the username was rejected.
func Login(ctx context.Context, baseURL, username string) (string, error) {
	if username == "" {
		return "", fmt.Errorf("username is required")
	}

	body, err := sonic.Marshal(loginRequest{Username: username})
	if err != nil {
		return "", fmt.Errorf("marshaling login request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(baseURL + "/login")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	errC := make(chan error, 1)
	go func() {
		errC <- fasthttp.Do(req, resp)
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case err := <-errC:
		if err != nil {
			return "", fmt.Errorf("performing login request: %w", err)
		}
	}

	if resp.StatusCode() != fasthttp.StatusFound {
		return "", fmt.Errorf("unexpected login status code: %d, body: %s", resp.StatusCode(), string(resp.Body()))
	}

	return parseLoginRedirect(string(resp.Header.Peek(fasthttp.HeaderLocation)))
}

// parseLoginRedirect extracts and validates the connection id from the
// post-login redirect target.
func parseLoginRedirect(location string) (string, error) {
	if location == "" {
		return "", fmt.Errorf("login response has no redirect location")
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parsing redirect location: %w", err)
	}
	id := u.Query().Get("id")
	if id == "" {
		return "", fmt.Errorf("login rejected, redirected to '%s'", location)
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", fmt.Errorf("parsing connection id: %w", err)
	}
	return id, nil
}
