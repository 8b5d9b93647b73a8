package pixiv

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"pixivsync/pkg/errors"
	"pixivsync/pkg/logger"
	"pixivsync/pkg/ratelimit"
	"pixivsync/pkg/retry"
	"pixivsync/pkg/syncdb"
)

const (
	// BaseURL is the Pixiv app API endpoint
	BaseURL = "https://app-api.pixiv.net"
	// AuthURL is the OAuth token endpoint
	AuthURL = "https://oauth.secure.pixiv.net/auth/token"

	// App client credentials of the official mobile client, required by the
	// OAuth token endpoint.
	clientID     = "MOBrBDS8blbauoSck0ZfDbtuzpyT"
	clientSecret = "lsACyCD94FhDUtGTXi3QzcFE2uU1hqtDaKeqrdwj"
	hashSecret   = "28c1fdd170a5204386cb1313c7077b34f83e4aaf4aa829ce78c231e05b0bae2c"
)

// maxBookmarkIDPattern extracts the pagination cursor from a provider next
// link.
var maxBookmarkIDPattern = regexp.MustCompile(`[?&]max_bookmark_id=(\d+)(?:&|$)`)

// Client talks to the Pixiv app API. It satisfies the catalog listing and
// image fetching capabilities consumed by the sync engine.
type Client struct {
	httpClient  *http.Client
	headers     map[string]string
	baseURL     string
	authURL     string
	limiter     ratelimit.Limiter
	retryConfig *retry.Config
	logger      logger.Logger

	accessToken  string
	refreshToken string
	userID       string
}

// NewClient creates a new Pixiv API client. The timeout bounds every request
// so a stalled transfer surfaces as a terminal per-job failure rather than a
// hang.
func NewClient(timeout time.Duration, userAgent string, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if userAgent == "" {
		userAgent = "PixivAndroidApp/5.0.234 (Android 11; Pixel 5)"
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers: map[string]string{
			"User-Agent":      userAgent,
			"App-OS":          "android",
			"App-OS-Version":  "11",
			"Accept-Language": "en-US",
		},
		baseURL:     BaseURL,
		authURL:     AuthURL,
		limiter:     ratelimit.NewTokenBucket(60, time.Minute),
		retryConfig: retry.DefaultConfig(),
		logger:      log,
	}
}

// SetRateLimiter replaces the default per-minute token bucket.
func (c *Client) SetRateLimiter(limiter ratelimit.Limiter) {
	if limiter != nil {
		c.limiter = limiter
	}
}

// SetRetryConfig replaces the retry policy applied to listing requests.
func (c *Client) SetRetryConfig(cfg *retry.Config) {
	if cfg != nil {
		c.retryConfig = cfg
	}
}

// SetToken installs a previously obtained token.
func (c *Client) SetToken(t *syncdb.Token) {
	if t == nil {
		return
	}
	c.accessToken = t.AccessToken
	c.refreshToken = t.RefreshToken
	c.userID = t.UserID
}

// Authenticated reports whether the client carries a usable identity.
func (c *Client) Authenticated() bool {
	return c.accessToken != "" && c.userID != ""
}

// UserID returns the authenticated user's id, empty when not logged in.
func (c *Client) UserID() string {
	return c.userID
}

// Authenticate exchanges a refresh token for a fresh access token and
// installs the resulting identity on the client.
func (c *Client) Authenticate(refreshToken string) (*syncdb.Token, error) {
	form := url.Values{}
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("get_secure_url", "1")

	req, err := http.NewRequest(http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.New(errors.ErrorTypeRemote, "failed to build auth request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	// The token endpoint requires a client hash over the local time
	clientTime := time.Now().Format(time.RFC3339)
	req.Header.Set("X-Client-Time", clientTime)
	req.Header.Set("X-Client-Hash", fmt.Sprintf("%x", md5.Sum([]byte(clientTime+hashSecret))))

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.NewRemote(resp.StatusCode, "authentication failed: %s", strings.TrimSpace(string(body)))
	}

	var result authResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.New(errors.ErrorTypeRemote, "failed to decode auth response: %v", err)
	}

	token := &syncdb.Token{
		AccessToken:  result.Response.AccessToken,
		RefreshToken: result.Response.RefreshToken,
		UserID:       result.Response.User.ID,
		UserName:     result.Response.User.Name,
	}
	c.SetToken(token)

	c.logger.WithFields(map[string]interface{}{
		"user_id":   token.UserID,
		"user_name": token.UserName,
	}).Info("Authenticated")

	return token, nil
}

// UserIllusts lists one page of an author's illustrations. The page boundary
// is provider-defined; callers advance the offset by the number of items
// returned. An empty page signals the end of the listing.
func (c *Client) UserIllusts(authorID string, offset int) ([]RawIllust, error) {
	endpoint := fmt.Sprintf("%s/v1/user/illusts?user_id=%s&type=illust&filter=for_android&offset=%d",
		c.baseURL, url.QueryEscape(authorID), offset)

	result, err := c.listIllusts(endpoint)
	if err != nil {
		return nil, err
	}
	return result.Illusts, nil
}

// UserBookmarks lists one page of the authenticated user's bookmarked
// illustrations for the given visibility class. It returns the items and the
// provider's next-page link ("" when there is no next page).
func (c *Client) UserBookmarks(visibility, maxBookmarkID string) ([]RawIllust, string, error) {
	endpoint := fmt.Sprintf("%s/v1/user/bookmarks/illust?user_id=%s&restrict=%s&filter=for_android",
		c.baseURL, url.QueryEscape(c.userID), url.QueryEscape(visibility))
	if maxBookmarkID != "" {
		endpoint += "&max_bookmark_id=" + url.QueryEscape(maxBookmarkID)
	}

	result, err := c.listIllusts(endpoint)
	if err != nil {
		return nil, "", err
	}
	return result.Illusts, result.NextURL, nil
}

// Download fetches the raw bytes of one image.
func (c *Client) Download(imageURL string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeRemote, "failed to build download request: %v", err)
	}
	// The image CDN rejects requests without a pixiv referer
	req.Header.Set("Referer", c.baseURL+"/")
	req.Header.Set("User-Agent", c.headers["User-Agent"])

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeRemote, "download request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewRemote(resp.StatusCode, "download failed: %s", imageURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeRemote, "download read failed: %v", err)
	}
	return data, nil
}

// ParseMaxBookmarkID extracts the pagination cursor from a next-page link.
// The second return is false when the link carries no parsable cursor.
func ParseMaxBookmarkID(nextURL string) (string, bool) {
	m := maxBookmarkIDPattern.FindStringSubmatch(nextURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// listIllusts performs a listing request with rate limiting and retry on
// transient failures.
func (c *Client) listIllusts(endpoint string) (*illustsResponse, error) {
	var result illustsResponse

	operation := func() error {
		c.limiter.Wait()
		return c.getJSON(endpoint, &result)
	}

	if err := retry.Do(operation, c.retryConfig); err != nil {
		return nil, err
	}

	if result.Error != nil && result.Error.message() != "" {
		return nil, errors.New(errors.ErrorTypeRemote, "%s", result.Error.message())
	}
	return &result, nil
}

// getJSON performs an authenticated GET and decodes the JSON response.
func (c *Client) getJSON(endpoint string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.New(errors.ErrorTypeRemote, "failed to build request: %v", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
			logger.LogRateLimit(req.URL.Path, retryAfter)
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.NewRemote(resp.StatusCode, "request failed: %s", strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.New(errors.ErrorTypeRemote, "failed to decode response: %v", err)
	}
	return nil
}

// do sends a request with the client headers and bearer token attached.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": time.Since(start),
		})
		return nil, errors.New(errors.ErrorTypeRemote, "network error: %v", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})
	return resp, nil
}
