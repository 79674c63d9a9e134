package translate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/sync/singleflight"

	"github.com/ViksyAsenov/poly-talk/internal/model"
)

// TranslationStore 翻译缓存存储
type TranslationStore interface {
	Get(ctx context.Context, messageID, targetLanguageID int64) (*model.Translation, error)
	Upsert(ctx context.Context, t *model.Translation) error
}

// LanguageStore 语言查询
type LanguageStore interface {
	GetByID(ctx context.Context, id int64) (*model.Language, error)
}

// Result 翻译结果
// 失败时 Content 为原文、Translated 为 false，调用方无需区分失败原因
type Result struct {
	Content    string
	Translated bool
}

// Gateway 翻译缓存网关
// 缓存优先；未命中时调用外部翻译服务并写回缓存；任何失败都降级为原文。
// 同一 (消息, 目标语言) 的并发未命中通过 singleflight 合并为一次外部调用。
type Gateway struct {
	translations TranslationStore
	languages    LanguageStore
	provider     Provider
	group        singleflight.Group
	logger       *slog.Logger
}

// NewGateway 创建翻译缓存网关
func NewGateway(translations TranslationStore, languages LanguageStore, provider Provider) *Gateway {
	return &Gateway{
		translations: translations,
		languages:    languages,
		provider:     provider,
		logger:       slog.Default(),
	}
}

// Cached 只查缓存，不触发外部调用
func (g *Gateway) Cached(ctx context.Context, messageID, targetLanguageID int64) (*model.Translation, error) {
	return g.translations.Get(ctx, messageID, targetLanguageID)
}

// Resolve 获取消息在目标语言下的内容
// 翻译只是增强，永远不向调用方返回错误
func (g *Gateway) Resolve(ctx context.Context, msg *model.Message, targetLanguageID int64) Result {
	cached, err := g.translations.Get(ctx, msg.ID, targetLanguageID)
	if err != nil {
		g.logger.Error("Translation cache lookup failed", "messageId", msg.ID, "targetLanguageId", targetLanguageID, "error", err)
		return Result{Content: msg.Content, Translated: false}
	}
	if cached != nil {
		return Result{Content: cached.TranslatedContent, Translated: true}
	}

	key := fmt.Sprintf("%d:%d", msg.ID, targetLanguageID)
	translated, err, _ := g.group.Do(key, func() (interface{}, error) {
		return g.translateAndStore(ctx, msg, targetLanguageID)
	})
	if err != nil {
		g.logger.Error("Translation failed, falling back to original content",
			"messageId", msg.ID,
			"targetLanguageId", targetLanguageID,
			"error", err)
		return Result{Content: msg.Content, Translated: false}
	}

	return Result{Content: translated.(string), Translated: true}
}

// translateAndStore 调用外部服务并写回缓存
func (g *Gateway) translateAndStore(ctx context.Context, msg *model.Message, targetLanguageID int64) (string, error) {
	target, err := g.languages.GetByID(ctx, targetLanguageID)
	if err != nil {
		return "", err
	}

	translated, err := g.provider.Translate(ctx, msg.Content, g.sourceCode(ctx, msg), target.Code)
	if err != nil {
		return "", err
	}

	translation := &model.Translation{
		MessageID:         msg.ID,
		TargetLanguageID:  targetLanguageID,
		TranslatedContent: translated,
	}
	if err := g.translations.Upsert(ctx, translation); err != nil {
		return "", err
	}

	return translated, nil
}

// sourceCode 确定源语言代码
// 优先用消息记录的原始语言，否则对正文做语言检测，都失败时交给翻译服务自检
func (g *Gateway) sourceCode(ctx context.Context, msg *model.Message) string {
	if msg.OriginalLanguageID != nil {
		lang, err := g.languages.GetByID(ctx, *msg.OriginalLanguageID)
		if err == nil {
			return lang.Code
		}
		g.logger.Warn("Unknown original language, detecting from content", "messageId", msg.ID, "error", err)
	}

	info := whatlanggo.Detect(msg.Content)
	if info.IsReliable() {
		if code := info.Lang.Iso6391(); code != "" {
			return code
		}
	}

	return SourceAuto
}
