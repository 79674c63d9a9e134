package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ViksyAsenov/poly-talk/internal/config"
)

// SourceAuto 让翻译服务自行检测源语言
const SourceAuto = "auto"

// Provider 外部翻译服务
type Provider interface {
	Translate(ctx context.Context, text, sourceCode, targetCode string) (string, error)
}

// HTTPProvider LibreTranslate 风格的 HTTP 翻译客户端
type HTTPProvider struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPProvider 创建翻译客户端，超时由配置限定
func NewHTTPProvider(cfg config.TranslatorConfig) *HTTPProvider {
	return &HTTPProvider{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate 调用翻译服务
// 非 2xx 状态或响应不合法时返回错误，超时走 http.Client 的超时
func (p *HTTPProvider) Translate(ctx context.Context, text, sourceCode, targetCode string) (string, error) {
	body, err := json.Marshal(translateRequest{
		Q:      text,
		Source: sourceCode,
		Target: targetCode,
		Format: "text",
		APIKey: p.apiKey,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("translator returned status %d: %s", resp.StatusCode, payload)
	}

	var result translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("translator returned malformed payload: %w", err)
	}
	if result.TranslatedText == "" {
		return "", fmt.Errorf("translator returned empty translation")
	}

	return result.TranslatedText, nil
}
