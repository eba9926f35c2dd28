// Package service handles identity: token issuance against an external
// credential verifier and the authenticated self view.
package service

import (
	"context"

	usermodel "SLProject/module/user/model"
	"SLProject/store"
	"SLProject/tools/errs"
	jwtlib "SLProject/tools/security"
)

// CredentialVerifier is the external identity collaborator. It owns the
// password material; this service never sees or stores credentials.
type CredentialVerifier interface {
	Verify(ctx context.Context, email, password string) (userID string, err error)
}

type UserService struct {
	store    store.Store
	verifier CredentialVerifier
	jwt      jwtlib.Options
}

func NewUserService(s store.Store, verifier CredentialVerifier, jwtOpts jwtlib.Options) *UserService {
	return &UserService{store: s, verifier: verifier, jwt: jwtOpts}
}

type LoginResult struct {
	Token     string             `json:"token"`
	ExpiresAt int64              `json:"expiresAt"`
	User      usermodel.PublicUser `json:"user"`
}

// Login verifies credentials with the collaborator and signs a token for
// the resolved user id. Verifier failures surface as Unauthenticated.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, errs.ErrInvalidArgument.WrapMsg("email and password are required")
	}
	userID, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		return nil, errs.ErrUnauthenticated.WrapMsg("invalid credentials")
	}
	u, err := store.GetUser(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	token, _, exp, err := jwtlib.Generate(s.jwt, userID, nil)
	if err != nil {
		return nil, errs.WrapMsg(err, "sign token", "user", userID)
	}
	return &LoginResult{Token: token, ExpiresAt: exp.UnixMilli(), User: u.Public()}, nil
}

// Check returns the caller's own record, relationship arrays included.
func (s *UserService) Check(ctx context.Context, userID string) (*usermodel.User, error) {
	return store.GetUser(ctx, s.store, userID)
}
