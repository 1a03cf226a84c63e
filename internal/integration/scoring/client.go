// Package scoring 封装外部智能评分服务的 HTTP 调用。
// 该服务是一个黑盒协作方：延迟以秒计、可能失败、受对方限流约束。
// 其返回值一律不可盲信，由编排层校验后才会用于分单。
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"titleflow/backend/config"
	"titleflow/backend/internal/dto"
)

// Client 外部评分服务 HTTP 客户端
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  *zap.Logger
}

// NewClient 创建评分服务客户端
func NewClient(cfg *config.ScoringConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// Suggest 请求外部服务为工单推荐承办律师
func (c *Client) Suggest(ctx context.Context, sctx *dto.SuggestContext) (*dto.Suggestion, error) {
	body, err := json.Marshal(sctx)
	if err != nil {
		return nil, fmt.Errorf("序列化评分上下文失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/suggest", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("构造评分请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("评分服务请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("评分服务返回异常状态",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet),
		)
		return nil, fmt.Errorf("评分服务返回状态 %d", resp.StatusCode)
	}

	var suggestion dto.Suggestion
	if err := json.NewDecoder(resp.Body).Decode(&suggestion); err != nil {
		return nil, fmt.Errorf("解析评分结果失败: %w", err)
	}

	if suggestion.AdvocateID == "" {
		return nil, fmt.Errorf("评分结果缺少 advocate_id")
	}
	if suggestion.Confidence < 0 || suggestion.Confidence > 10 {
		return nil, fmt.Errorf("评分结果 confidence 越界: %d", suggestion.Confidence)
	}

	return &suggestion, nil
}
