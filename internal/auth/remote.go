package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/projectboard/internal/model"
)

const getSessionPath = "/api/auth/get-session"

// maxSessionResponseSize はセッション応答として読み込む最大バイト数。
const maxSessionResponseSize = 1 << 20

// RemoteProvider は外部IDサービスのget-sessionエンドポイントでセッションを解決する。
type RemoteProvider struct {
	baseURL string
	client  *http.Client
}

// NewRemoteProvider はRemoteProviderを生成する。timeoutは1回の問い合わせの上限。
func NewRemoteProvider(baseURL string, timeout time.Duration) *RemoteProvider {
	return &RemoteProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// remoteSession はget-sessionの応答。未認証の場合はJSONのnullが返る。
type remoteSession struct {
	Session struct {
		ID     string `json:"id"`
		Token  string `json:"token"`
		UserID string `json:"userId"`
	} `json:"session"`
	User struct {
		ID            string `json:"id"`
		Name          string `json:"name"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"emailVerified"`
	} `json:"user"`
}

// FindSession はリクエストのCookieとAuthorizationヘッダーを転送してセッションを問い合わせる。
func (p *RemoteProvider) FindSession(ctx context.Context, creds Credentials) (*model.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+getSessionPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create session request: %w", err)
	}
	for _, name := range []string{"Cookie", "Authorization"} {
		if v := creds.Header.Get(name); v != "" {
			req.Header.Set(name, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("session request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSessionResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read session response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("session lookup failed with status %d", resp.StatusCode)
	}

	var rs *remoteSession
	if err := json.Unmarshal(body, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse session response: %w", err)
	}
	if rs == nil {
		return nil, nil
	}

	userID := rs.User.ID
	if userID == "" {
		userID = rs.Session.UserID
	}

	return &model.Session{
		SessionID:     rs.Session.ID,
		SessionToken:  rs.Session.Token,
		UserID:        userID,
		UserName:      rs.User.Name,
		UserEmail:     rs.User.Email,
		EmailVerified: rs.User.EmailVerified,
	}, nil
}

// compile-time interface check
var _ SessionProvider = (*RemoteProvider)(nil)
