package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"SLProject/store"
	"SLProject/tools/errs"
)

// HTTPVerifier asks an external identity endpoint to check credentials.
// The endpoint receives {email, password} and answers {userId} on 200;
// anything else reads as a rejection.
type HTTPVerifier struct {
	Endpoint string
	Client   *http.Client
}

func NewHTTPVerifier(endpoint string) *HTTPVerifier {
	return &HTTPVerifier{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (v *HTTPVerifier) Verify(ctx context.Context, email, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", errs.Wrap(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errs.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := v.Client.Do(req)
	if err != nil {
		return "", errs.WrapMsg(err, "verify request", "endpoint", v.Endpoint)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return "", errs.ErrUnauthenticated.WrapMsg("credentials rejected")
	}
	var out struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil || out.UserID == "" {
		return "", errs.ErrUnauthenticated.WrapMsg("verifier returned no user")
	}
	return out.UserID, nil
}

// DevVerifier resolves any password against the user email. Local
// development only; never wire it in production.
type DevVerifier struct {
	Store store.Store
}

func (v *DevVerifier) Verify(ctx context.Context, email, _ string) (string, error) {
	users, err := store.FindUsers(ctx, v.Store, store.Filter{
		Eq: map[string]any{"email": email},
	})
	if err != nil {
		return "", err
	}
	if len(users) == 0 {
		return "", errs.ErrUnauthenticated.WrapMsg("unknown email")
	}
	return users[0].ID, nil
}
