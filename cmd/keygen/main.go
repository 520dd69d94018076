// AngelaMos | 2026
// main.go

// keygen creates an ES256 key pair and, given a private key, mints access
// tokens for local development in place of the identity provider.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tonymphomilanzi/microbid/internal/auth"
	"github.com/tonymphomilanzi/microbid/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("keygen failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	privatePath := fs.String("private", "keys/private.pem", "private key path")
	publicPath := fs.String("public", "keys/public.pem", "public key path")
	mint := fs.String("token", "", "mint an access token for this user id instead of generating keys")
	role := fs.String("role", "user", "role claim for -token")
	tier := fs.String("tier", "FREE", "tier claim for -token")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime for -token")
	issuer := fs.String("issuer", "microbid-identity", "issuer claim")
	audience := fs.String("audience", "microbid-api", "audience claim")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *mint == "" {
		for _, path := range []string{*privatePath, *publicPath} {
			if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
				return fmt.Errorf("create key dir: %w", err)
			}
		}
		if err := auth.GenerateKeyPair(*privatePath, *publicPath); err != nil {
			return err
		}
		slog.Info("key pair written", "private", *privatePath, "public", *publicPath)
		return nil
	}

	manager, err := auth.NewJWTManager(config.JWTConfig{
		PrivateKeyPath:    *privatePath,
		PublicKeyPath:     *publicPath,
		AccessTokenExpire: *ttl,
		Issuer:            *issuer,
		Audience:          *audience,
	})
	if err != nil {
		return err
	}

	token, err := manager.CreateAccessToken(auth.AccessTokenClaims{
		UserID: *mint,
		Role:   *role,
		Tier:   *tier,
	})
	if err != nil {
		return err
	}

	slog.Info("token minted",
		"subject", *mint,
		"role", *role,
		"tier", *tier,
		"kid", manager.GetKeyID(),
		"ttl", ttl.String(),
	)
	fmt.Println(token)
	return nil
}
