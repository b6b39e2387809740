package ghost

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mealmapp/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// RecipeTag is the Ghost tag that marks recipe posts.
const RecipeTag = "recipe"

// Post represents a single post from the Ghost API.
type Post struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	HTML      string `json:"html"`
	URL       string `json:"url"`
	UpdatedAt string `json:"updated_at"`
}

// PostsResponse is the top-level structure of the Ghost API response for posts.
type PostsResponse struct {
	Posts []Post `json:"posts"`
	Meta  struct {
		Pagination struct {
			Next *int `json:"next"`
		} `json:"pagination"`
	} `json:"meta"`
}

// Client is an interface for a Ghost API client (Content & Admin).
type Client interface {
	FetchRecipes(ctx context.Context) ([]Post, error)
	CreatePost(ctx context.Context, title, html string, publish bool) (*Post, error)
}

// ghostClient is the concrete implementation of the Ghost API client.
type ghostClient struct {
	httpClient *http.Client
	baseURL    string
	contentKey string
	adminKey   string
}

// NewClient creates a new Ghost API client.
func NewClient(cfg *config.Config) Client {
	return &ghostClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(cfg.GhostURL, "/"),
		contentKey: cfg.GhostContentKey,
		adminKey:   cfg.GhostAdminKey,
	}
}

// FetchRecipes fetches every post tagged as a recipe from the Content API,
// following pagination.
func (c *ghostClient) FetchRecipes(ctx context.Context) ([]Post, error) {
	var posts []Post
	page := 1
	for {
		q := url.Values{}
		q.Set("key", c.contentKey)
		q.Set("filter", "tag:"+RecipeTag)
		q.Set("formats", "html")
		q.Set("limit", "50")
		q.Set("page", fmt.Sprint(page))
		endpoint := fmt.Sprintf("%s/ghost/api/content/posts/?%s", c.baseURL, q.Encode())

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		var postsResponse PostsResponse
		if err := c.do(req, http.StatusOK, &postsResponse); err != nil {
			return nil, fmt.Errorf("content api error: %w", err)
		}
		posts = append(posts, postsResponse.Posts...)

		next := postsResponse.Meta.Pagination.Next
		if next == nil || *next <= page {
			return posts, nil
		}
		page = *next
	}
}

// CreatePost creates a new post using the Ghost Admin API.
func (c *ghostClient) CreatePost(ctx context.Context, title, html string, publish bool) (*Post, error) {
	token, err := c.createAdminToken(time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to create admin token: %w", err)
	}

	status := "draft"
	if publish {
		status = "published"
	}

	body, err := json.Marshal(map[string]any{
		"posts": []map[string]any{{"title": title, "html": html, "status": status}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal post: %w", err)
	}

	endpoint := fmt.Sprintf("%s/ghost/api/admin/posts/?source=html", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Ghost "+token)
	req.Header.Set("Content-Type", "application/json")

	var response PostsResponse
	if err := c.do(req, http.StatusCreated, &response); err != nil {
		return nil, fmt.Errorf("admin api error: %w", err)
	}
	if len(response.Posts) == 0 {
		return nil, fmt.Errorf("no post returned from api")
	}
	return &response.Posts[0], nil
}

func (c *ghostClient) do(req *http.Request, wantStatus int, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus && resp.StatusCode != http.StatusOK {
		var errResp any
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("status %d, body: %v", resp.StatusCode, errResp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// createAdminToken generates a short-lived JWT for the Admin API. The admin
// key has the form id:hexsecret.
func (c *ghostClient) createAdminToken(now time.Time) (string, error) {
	id, secretHex, ok := strings.Cut(c.adminKey, ":")
	if !ok || id == "" {
		return "", fmt.Errorf("invalid admin key format: expected id:secret")
	}

	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return "", fmt.Errorf("failed to decode secret hex: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
		"aud": "/admin/",
	})
	token.Header["kid"] = id

	return token.SignedString(secret)
}
