package api

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/mr-tron/base58"

	"token-launchpad/internal/domain"
)

// Identity headers.
const (
	HeaderAccount   = "X-Account"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp" // unix milliseconds
	HeaderNonce     = "X-Nonce"     // unique per account within the signature window
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

type callerKey struct{}

// SigningPayload returns the bytes a caller signs:
// METHOD "\n" PATH "\n" TIMESTAMP "\n" NONCE "\n" BODY.
func SigningPayload(method, path string, timestamp int64, nonce string, body []byte) []byte {
	ts := strconv.FormatInt(timestamp, 10)
	msg := make([]byte, 0, len(method)+len(path)+len(ts)+len(nonce)+len(body)+4)
	msg = append(msg, method...)
	msg = append(msg, '\n')
	msg = append(msg, path...)
	msg = append(msg, '\n')
	msg = append(msg, ts...)
	msg = append(msg, '\n')
	msg = append(msg, nonce...)
	msg = append(msg, '\n')
	return append(msg, body...)
}

// SignRequest returns the base58 X-Signature value for a request.
func SignRequest(key ed25519.PrivateKey, method, path string, timestamp int64, nonce string, body []byte) string {
	return base58.Encode(ed25519.Sign(key, SigningPayload(method, path, timestamp, nonce, body)))
}

// authenticate resolves X-Account into the caller. With signatures required the
// account is treated as an ed25519 public key, X-Signature must verify over the
// timestamp and nonce, and each nonce is accepted once.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := domain.ParseAccount(r.Header.Get(HeaderAccount))
		if err != nil || caller.IsZero() {
			s.writeError(w, r, fmt.Errorf("%w: %s header", errUnauthenticated, HeaderAccount))
			return
		}

		if s.requireSignatures {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			if err != nil {
				s.writeError(w, r, fmt.Errorf("%w: read body: %v", errBadRequest, err))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			ts, err := strconv.ParseInt(r.Header.Get(HeaderTimestamp), 10, 64)
			if err != nil {
				s.writeError(w, r, fmt.Errorf("%w: %s header", errUnauthenticated, HeaderTimestamp))
				return
			}
			nonce := r.Header.Get(HeaderNonce)
			if nonce == "" || len(nonce) > maxNonceLen {
				s.writeError(w, r, fmt.Errorf("%w: %s header", errUnauthenticated, HeaderNonce))
				return
			}

			sig, err := base58.Decode(r.Header.Get(HeaderSignature))
			if err != nil || len(sig) != ed25519.SignatureSize {
				s.writeError(w, r, fmt.Errorf("%w: malformed %s header", errBadSignature, HeaderSignature))
				return
			}
			if !ed25519.Verify(ed25519.PublicKey(caller.Bytes()), SigningPayload(r.Method, r.URL.Path, ts, nonce, body), sig) {
				s.writeError(w, r, errBadSignature)
				return
			}

			if err := s.replay.accept(caller, nonce, time.UnixMilli(ts), s.now()); err != nil {
				s.writeError(w, r, err)
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, caller)))
	})
}

// callerFrom returns the authenticated caller. Only valid behind authenticate.
func callerFrom(ctx context.Context) domain.Account {
	a, _ := ctx.Value(callerKey{}).(domain.Account)
	return a
}
