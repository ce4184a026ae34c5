// Package ca talks to the issuing authority's REST API. Registration is
// authenticated as an already-enrolled administrative identity by
// signing the request body with its private key; enrollment exchanges a
// one-time secret for a signed certificate.
package ca

import (
	"bytes"
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Vigneshd705/ChatApp/internal/wallet"
)

var (
	ErrAuthorityUnreachable = errors.New("issuing authority unreachable")
	ErrPermissionDenied     = errors.New("issuing authority rejected administrative identity")
	ErrInvalidSecret        = errors.New("enrollment secret invalid or consumed")
	ErrAlreadyRegistered    = errors.New("identity already registered with authority")
)

// RoleClient is the role requested for ordinary chat participants.
const RoleClient = "client"

// RegistrationRequest is the register call payload.
type RegistrationRequest struct {
	ID          string `json:"id"`
	Affiliation string `json:"affiliation"`
	Role        string `json:"type"`
}

type registerResponse struct {
	Secret string `json:"secret"`
}

type enrollRequest struct {
	CertificateRequest string `json:"certificate_request"`
}

type enrollResponse struct {
	Certificate string `json:"certificate"`
}

// Client is an HTTP client for one issuing authority.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the authority at baseURL. Every call is
// bounded by timeout; a timeout aborts the whole attempt.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Register asks the authority to register a new identity, authenticating
// as admin. Returns the one-time enrollment secret.
func (c *Client) Register(ctx context.Context, admin *wallet.Credential, req RegistrationRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	token, err := authToken(admin, body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/register", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthorityUnreachable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("register %s: %w", req.ID, ErrPermissionDenied)
	case http.StatusConflict:
		return "", fmt.Errorf("register %s: %w", req.ID, ErrAlreadyRegistered)
	default:
		return "", fmt.Errorf("register %s: authority returned %d", req.ID, resp.StatusCode)
	}

	var out registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("register %s: decode response: %w", req.ID, err)
	}
	if out.Secret == "" {
		return "", fmt.Errorf("register %s: authority returned empty secret", req.ID)
	}
	return out.Secret, nil
}

// Enroll generates a fresh key pair, submits a certificate request
// authenticated by the one-time secret, and returns the PEM certificate
// and private key.
func (c *Client) Enroll(ctx context.Context, name, secret string) (certPEM, keyPEM []byte, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("enroll %s: generate key: %w", name, err)
	}

	csrDER, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject: pkix.Name{CommonName: name},
	}, key)
	if err != nil {
		return nil, nil, fmt.Errorf("enroll %s: create csr: %w", name, err)
	}
	csrPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE REQUEST", Bytes: csrDER})

	body, err := json.Marshal(enrollRequest{CertificateRequest: string(csrPEM)})
	if err != nil {
		return nil, nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/enroll", bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(name, secret)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrAuthorityUnreachable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, nil, fmt.Errorf("enroll %s: %w", name, ErrInvalidSecret)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, nil, fmt.Errorf("enroll %s: authority returned %d: %s", name, resp.StatusCode, msg)
	}

	var out enrollResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, nil, fmt.Errorf("enroll %s: decode response: %w", name, err)
	}
	if out.Certificate == "" {
		return nil, nil, fmt.Errorf("enroll %s: authority returned empty certificate", name)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, fmt.Errorf("enroll %s: marshal key: %w", name, err)
	}
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	return []byte(out.Certificate), keyPEM, nil
}

// authToken builds the register call's Authorization header: the
// admin's certificate and a signature over the body, base64 joined by a
// dot, so the authority can verify both who is asking and what they
// asked for.
func authToken(admin *wallet.Credential, body []byte) (string, error) {
	signer, err := admin.Signer()
	if err != nil {
		return "", err
	}

	digest := sha256.Sum256(body)
	sig, err := signer.Sign(rand.Reader, digest[:], crypto.SHA256)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(admin.Certificate) + "." +
		base64.StdEncoding.EncodeToString(sig), nil
}
