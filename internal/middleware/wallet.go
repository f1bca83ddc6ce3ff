package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const ctxWalletKey contextKey = "wallet"

const walletHeader = "X-Wallet-Address"

// WalletContext reads the caller's wallet address from X-Wallet-Address and
// stores it in the request context. Wallets are opaque identifiers here, not
// credentials: pay endpoints use the value to capture the client wallet on
// the client's first interaction with an invoice.
func WalletContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr := strings.TrimSpace(r.Header.Get(walletHeader))
		if addr != "" {
			r = r.WithContext(WithWallet(r.Context(), addr))
		}
		next.ServeHTTP(w, r)
	})
}

// WalletFromCtx returns the caller's wallet address or "".
func WalletFromCtx(ctx context.Context) string {
	addr, _ := ctx.Value(ctxWalletKey).(string)
	return addr
}

// WithWallet returns a context carrying the given wallet address.
func WithWallet(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, ctxWalletKey, addr)
}
