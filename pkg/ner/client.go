// Package ner 提供了一个与外部 NLP 实体识别服务交互的客户端。
package ner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"kosmos-go/internal/config"
)

// Client 是实体识别服务的 HTTP 客户端。
type Client struct {
	serverURL string
	client    *http.Client
}

// NewClient 创建一个新的 NER 客户端实例。
func NewClient(cfg config.NERConfig) *Client {
	return &Client{
		serverURL: cfg.ServerURL,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type extractRequest struct {
	Text string `json:"text"`
}

type extractResponse struct {
	Entities map[string][]string `json:"entities"`
}

// ExtractEntities 调用 NER 服务，返回按类别分组的实体列表。
func (c *Client) ExtractEntities(ctx context.Context, text string) (map[string][]string, error) {
	reqBytes, err := json.Marshal(extractRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("序列化 NER 请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.serverURL+"/extract", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("创建 NER 请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("调用 NER 服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("NER 服务返回错误 [%d]: %s", resp.StatusCode, string(body))
	}

	var extractResp extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&extractResp); err != nil {
		return nil, fmt.Errorf("解析 NER 响应失败: %w", err)
	}
	return extractResp.Entities, nil
}
