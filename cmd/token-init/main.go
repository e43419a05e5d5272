package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/auth"
	"fintrack/internal/config"
)

// token-init signs a bearer token for local development with the same
// key, issuer and audience the server verifies.
func main() {
	_ = godotenv.Load()

	subject := os.Getenv("TOKEN_SUBJECT")
	if len(os.Args) > 1 {
		subject = os.Args[1]
	}
	if subject == "" {
		log.Fatalf("usage: token-init <owner-id> (or set TOKEN_SUBJECT)")
	}

	ttl := time.Hour
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("invalid TOKEN_TTL %q: %v", v, err)
		}
		ttl = d
	}

	cfg := config.Load()
	v, err := auth.NewVerifier(auth.VerifierConfig{
		SigningKey: cfg.AuthSigningKey,
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience(),
	})
	if err != nil {
		log.Fatalf("verifier: %v", err)
	}

	token, err := v.Issue(subject, os.Getenv("TOKEN_EMAIL"), ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	outFile := os.Getenv("TOKEN_FILE")
	if outFile == "" {
		fmt.Println(token)
		return
	}
	f, err := os.OpenFile(outFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		log.Fatalf("open token file: %v", err)
	}
	defer f.Close()
	out := map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expiry":       time.Now().Add(ttl).UTC(),
	}
	if err := json.NewEncoder(f).Encode(out); err != nil {
		log.Fatalf("write token: %v", err)
	}
	fmt.Printf("Saved token to %s\n", outFile)
}
