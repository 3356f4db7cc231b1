package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/caredash/caredash/internal/domain/user"
)

func TestUserRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	truncateTables(t, ctx)
	svc := user.NewService(user.NewRepo(globalDB.Pool), "admin-code")

	registered, err := svc.Register(ctx, user.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if registered.Role != user.RoleUser {
		t.Errorf("role = %q, want default user role", registered.Role)
	}
	if registered.PasswordHash == "s3cret-pass" {
		t.Error("password stored unhashed")
	}

	authed, err := svc.Authenticate(ctx, "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if authed.ID != registered.ID {
		t.Errorf("authenticate returned wrong user: %s != %s", authed.ID, registered.ID)
	}

	if _, err := svc.Authenticate(ctx, "alice@example.com", "wrong-pass"); !errors.Is(err, user.ErrInvalidCredentials) {
		t.Errorf("wrong password = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@example.com", "s3cret-pass"); !errors.Is(err, user.ErrInvalidCredentials) {
		t.Errorf("unknown email = %v, want ErrInvalidCredentials", err)
	}
}

func TestUserDuplicateRegistration(t *testing.T) {
	ctx := context.Background()
	truncateTables(t, ctx)
	svc := user.NewService(user.NewRepo(globalDB.Pool), "")

	in := user.RegisterInput{Username: "bob", Email: "bob@example.com", Password: "s3cret-pass"}
	if _, err := svc.Register(ctx, in); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Register(ctx, in); !errors.Is(err, user.ErrDuplicateUser) {
		t.Errorf("duplicate email = %v, want ErrDuplicateUser", err)
	}

	in.Email = "bob2@example.com" // same username, different email
	if _, err := svc.Register(ctx, in); !errors.Is(err, user.ErrDuplicateUser) {
		t.Errorf("duplicate username = %v, want ErrDuplicateUser", err)
	}
}

func TestUserAdminRegistration(t *testing.T) {
	ctx := context.Background()
	truncateTables(t, ctx)
	svc := user.NewService(user.NewRepo(globalDB.Pool), "right-code")

	_, err := svc.Register(ctx, user.RegisterInput{
		Username:  "eve",
		Email:     "eve@example.com",
		Password:  "s3cret-pass",
		Role:      user.RoleAdmin,
		AdminCode: "wrong-code",
	})
	if !errors.Is(err, user.ErrInvalidAdminCode) {
		t.Errorf("wrong admin code = %v, want ErrInvalidAdminCode", err)
	}

	admin, err := svc.Register(ctx, user.RegisterInput{
		Username:  "carol",
		Email:     "carol@example.com",
		Password:  "s3cret-pass",
		Role:      user.RoleAdmin,
		AdminCode: "right-code",
	})
	if err != nil {
		t.Fatalf("admin register: %v", err)
	}
	if admin.Role != user.RoleAdmin {
		t.Errorf("role = %q, want admin", admin.Role)
	}
}
