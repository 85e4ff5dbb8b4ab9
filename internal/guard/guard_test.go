package guard

import (
	"context"
	"errors"
	"testing"

	"taskpad/internal/apperr"
	"taskpad/internal/remote"
)

type fakeGateway struct {
	currentFn func(ctx context.Context) (*remote.Session, error)
	signUpFn  func(ctx context.Context, email, password, username string) (remote.Identity, error)
	signInFn  func(ctx context.Context, email, password string) (remote.Session, error)
	signOutFn func(ctx context.Context) error

	signUpCalls int
}

func (f *fakeGateway) CurrentSession(ctx context.Context) (*remote.Session, error) {
	if f.currentFn != nil {
		return f.currentFn(ctx)
	}
	return nil, nil
}

func (f *fakeGateway) SignUp(ctx context.Context, email, password, username string) (remote.Identity, error) {
	f.signUpCalls++
	if f.signUpFn != nil {
		return f.signUpFn(ctx, email, password, username)
	}
	return remote.Identity{ID: "user-1", Username: username, Email: email}, nil
}

func (f *fakeGateway) SignInWithPassword(ctx context.Context, email, password string) (remote.Session, error) {
	if f.signInFn != nil {
		return f.signInFn(ctx, email, password)
	}
	return remote.Session{Identity: remote.Identity{ID: "user-1", Email: email}}, nil
}

func (f *fakeGateway) SignOut(ctx context.Context) error {
	if f.signOutFn != nil {
		return f.signOutFn(ctx)
	}
	return nil
}

type fakeNavigator struct {
	redirects int
}

func (f *fakeNavigator) GoToSignIn() { f.redirects++ }

func TestCheckFailsClosed(t *testing.T) {
	cases := []struct {
		name string
		fn   func(ctx context.Context) (*remote.Session, error)
	}{
		{
			name: "gateway error",
			fn: func(context.Context) (*remote.Session, error) {
				return nil, errors.New("gateway unreachable")
			},
		},
		{
			name: "no session",
			fn: func(context.Context) (*remote.Session, error) {
				return nil, nil
			},
		},
		{
			name: "error with session attached",
			fn: func(context.Context) (*remote.Session, error) {
				return &remote.Session{Identity: remote.Identity{ID: "user-1"}}, errors.New("partial failure")
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := New(&fakeGateway{currentFn: tc.fn})
			if state := g.Check(context.Background()); state.State != Absent {
				t.Fatalf("Check() = %v, want Absent", state.State)
			}
		})
	}
}

func TestCheckEstablishedCarriesIdentity(t *testing.T) {
	g := New(&fakeGateway{currentFn: func(context.Context) (*remote.Session, error) {
		return &remote.Session{Identity: remote.Identity{ID: "user-1", Username: "alice"}}, nil
	}})
	state := g.Check(context.Background())
	if state.State != Established || state.Identity.Username != "alice" {
		t.Fatalf("unexpected state: %+v", state)
	}
}

func TestRequireRedirectsWhenAbsent(t *testing.T) {
	g := New(&fakeGateway{})
	nav := &fakeNavigator{}
	if _, ok := g.Require(context.Background(), nav); ok {
		t.Fatal("Require() allowed an unauthenticated view")
	}
	if nav.redirects != 1 {
		t.Fatalf("redirects = %d, want 1", nav.redirects)
	}
}

func TestRequireAllowsEstablished(t *testing.T) {
	g := New(&fakeGateway{currentFn: func(context.Context) (*remote.Session, error) {
		return &remote.Session{Identity: remote.Identity{ID: "user-1"}}, nil
	}})
	nav := &fakeNavigator{}
	state, ok := g.Require(context.Background(), nav)
	if !ok || state.State != Established {
		t.Fatalf("Require() = %+v, %v", state, ok)
	}
	if nav.redirects != 0 {
		t.Fatalf("unexpected redirect")
	}
}

func TestSignUpValidationOrder(t *testing.T) {
	cases := []struct {
		name      string
		email     string
		password  string
		username  string
		wantField string
		wantMsg   string
	}{
		{
			name:      "username length reported before email and password",
			email:     "",
			password:  "123",
			username:  "ab",
			wantField: "username",
			wantMsg:   "Username must be at least 3 characters long",
		},
		{
			name:      "blank username",
			email:     "a@x.com",
			password:  "secret1",
			username:  "   ",
			wantField: "username",
			wantMsg:   "Username is required",
		},
		{
			name:      "blank email",
			email:     "  ",
			password:  "secret1",
			username:  "alice",
			wantField: "email",
			wantMsg:   "Email is required",
		},
		{
			name:      "short password",
			email:     "a@x.com",
			password:  "12345",
			username:  "alice",
			wantField: "password",
			wantMsg:   "Password must be at least 6 characters long",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &fakeGateway{}
			g := New(gw)
			_, err := g.SignUp(context.Background(), tc.email, tc.password, tc.username)
			var appErr *apperr.Error
			if !errors.As(err, &appErr) {
				t.Fatalf("SignUp() error = %v, want *apperr.Error", err)
			}
			if appErr.Kind != apperr.KindValidation || appErr.Field != tc.wantField || appErr.Message != tc.wantMsg {
				t.Fatalf("unexpected error: %+v", appErr)
			}
			if gw.signUpCalls != 0 {
				t.Fatalf("gateway contacted despite local validation failure")
			}
		})
	}
}

func TestSignUpDoesNotEstablishSession(t *testing.T) {
	g := New(&fakeGateway{})
	identity, err := g.SignUp(context.Background(), "a@x.com", "secret1", "alice")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if identity.Username != "alice" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if g.Current().State != Absent {
		t.Fatal("registration established a session")
	}
}

func TestSignInSurfacesGatewayMessageVerbatim(t *testing.T) {
	g := New(&fakeGateway{signInFn: func(context.Context, string, string) (remote.Session, error) {
		return remote.Session{}, errors.New("Invalid login credentials")
	}})
	_, err := g.SignIn(context.Background(), "a@x.com", "wrong")
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("SignIn() error = %v, want *apperr.Error", err)
	}
	if appErr.Kind != apperr.KindAuth || appErr.Message != "Invalid login credentials" {
		t.Fatalf("unexpected error: %+v", appErr)
	}
}

func TestSignInEstablishesSession(t *testing.T) {
	g := New(&fakeGateway{})
	if _, err := g.SignIn(context.Background(), "a@x.com", "secret1"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if g.Current().State != Established {
		t.Fatal("expected established session after sign-in")
	}
}

func TestSignOutAbsentDespiteGatewayError(t *testing.T) {
	g := New(&fakeGateway{signOutFn: func(context.Context) error {
		return errors.New("revoke failed")
	}})
	if _, err := g.SignIn(context.Background(), "a@x.com", "secret1"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	err := g.SignOut(context.Background())
	if err == nil {
		t.Fatal("expected sign-out error to be reported")
	}
	if g.Current().State != Absent {
		t.Fatal("guard still established after sign-out")
	}
}
