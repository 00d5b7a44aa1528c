package auth

import (
	"context"

	"github.com/hitoshi/projectboard/internal/model"
)

// TokenFinder はトークンからセッションを引く読み取り専用ストア。
// repository.PostgresIdentityRepo が実装する。
type TokenFinder interface {
	FindSessionByToken(ctx context.Context, token string) (*model.Session, error)
}

// TokenProvider はIDプロバイダーと共有するデータベースを直接参照するSessionProvider。
type TokenProvider struct {
	finder TokenFinder
}

// NewTokenProvider はTokenProviderを生成する。
func NewTokenProvider(finder TokenFinder) *TokenProvider {
	return &TokenProvider{finder: finder}
}

// FindSession はトークンに一致するセッションを返す。トークンが空の場合は問い合わせない。
func (p *TokenProvider) FindSession(ctx context.Context, creds Credentials) (*model.Session, error) {
	if creds.Token == "" {
		return nil, nil
	}
	return p.finder.FindSessionByToken(ctx, creds.Token)
}

// compile-time interface check
var _ SessionProvider = (*TokenProvider)(nil)
