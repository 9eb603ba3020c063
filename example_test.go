package goIdentity_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/MrEthical07/goIdentity/directory/memory"
)

type printMailer struct{}

func (printMailer) SendOTPEmail(_ context.Context, email, code string, purpose goIdentity.Purpose) error {
	fmt.Printf("%s code for %s: %s\n", purpose.DisplayName(), email, code)
	return nil
}

// ExampleNew wires an engine with Redis, an in-memory directory and a mailer.
func ExampleNew() {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})

	cfg := goIdentity.DefaultConfig()
	cfg.JWT.Secret = []byte("replace-with-32-bytes-of-entropy!")

	engine, err := goIdentity.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserDirectory(memory.New()).
		WithMailer(printMailer{}).
		Build()
	if err != nil {
		return
	}
	defer engine.Close()
}

// ExampleEngine_Register shows the two-step registration and how domain
// failures carry their HTTP status.
func ExampleEngine_Register() {
	var engine *goIdentity.Engine
	ctx := context.Background()

	err := engine.Register(ctx, goIdentity.RegisterInput{
		Email:           "alice@example.com",
		Password:        "correct-horse",
		ConfirmPassword: "correct-horse",
	})
	switch {
	case errors.Is(err, goIdentity.ErrEmailExists):
		_ = goIdentity.StatusCode(err) // 400
	case err != nil:
		_ = goIdentity.PublicMessage(err)
	}

	// The code arrives through the Mailer.
	_, _ = engine.VerifyRegister(ctx, goIdentity.VerifyRegisterInput{Email: "alice@example.com", OTP: "123456"})
}

// ExampleEngine_Authenticate resolves a bearer token to an active principal.
func ExampleEngine_Authenticate() {
	var engine *goIdentity.Engine
	principal, err := engine.Authenticate(context.Background(), "<access token>")
	if err != nil {
		return
	}
	_ = principal.Role
}
