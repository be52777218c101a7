package assembler

import (
	"fmt"
	"strings"

	"github.com/thinkscotty/globaldaily/internal/models"
)

const jokeCount = 3

// Prompt builds the instruction text for a generation request.
func Prompt(req models.GenerationRequest) string {
	switch req.Kind {
	case models.KindComposeJokes:
		return jokesPrompt()
	case models.KindComposeQuote:
		return quotePrompt()
	case models.KindComposeEditorial:
		return editorialPrompt(req)
	default:
		return newsPrompt(req)
	}
}

func heading(c models.Category) string {
	if c.Section != "" && c.Name != "" {
		return c.Section + " · " + c.Name
	}
	if c.Name != "" {
		return c.Name
	}
	return c.Key
}

func writeMaterials(sb *strings.Builder, materials []models.FeedItem) {
	for i, m := range materials {
		fmt.Fprintf(sb, "【新闻%d】标题：%s\n", i+1, m.Title)
		if m.PublishedSource != "" {
			fmt.Fprintf(sb, "来源：%s\n", m.PublishedSource)
		}
		if m.URL != "" {
			fmt.Fprintf(sb, "链接：%s\n", m.URL)
		}
		fmt.Fprintf(sb, "内容摘要：%s\n\n", m.RawSummary)
	}
}

func newsPrompt(req models.GenerationRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "你是一名资深新闻主编。请根据以下 %d 条素材，为「%s」栏目写出最多 %d 张新闻卡片。\n\n",
		len(req.Materials), heading(req.Category), req.MaxItems)

	sb.WriteString(`要求：
- 每张卡片对应一条素材，不要编造素材中没有的事实。
- title：简洁有力的中文标题，不超过 30 字。
- content：80 到 150 字的中文摘要，提炼核心信息和影响。
- source_url：原样使用素材中的链接。
- source_name：素材的来源名称。
- image_prompt：一句英文短语，描述适合这条新闻的配图画面。

IMPORTANT: 只返回合法的 JSON 数组，不要任何其他文字、解释或 markdown。

格式：
[
  {"title": "标题", "content": "摘要", "source_url": "https://...", "source_name": "来源", "image_prompt": "english description"}
]

素材如下：
`)
	writeMaterials(&sb, req.Materials)
	return sb.String()
}

func editorialPrompt(req models.GenerationRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "你是一个资深新闻主编。请根据以下 %d 条素材，为「%s」栏目写一篇 300 字左右的综述。\n",
		len(req.Materials), heading(req.Category))
	sb.WriteString("要求：不要罗列，融合成通顺的文章，提炼核心观点。只返回纯文本，不要标题、列表或 markdown。\n\n")
	sb.WriteString("素材如下：\n")
	writeMaterials(&sb, req.Materials)
	return sb.String()
}

func jokesPrompt() string {
	return fmt.Sprintf(`请写一组“每日一笑”，包含 %d 个原创、轻松、不冒犯任何群体的幽默段子，每个 100 字左右。

IMPORTANT: 只返回合法的 JSON 数组，不要任何其他文字、解释或 markdown。

格式：
[
  {"title": "段子标题", "content": "段子正文", "image_prompt": "english description of a funny illustration"}
]`, jokeCount)
}

func quotePrompt() string {
	return `请给出一句适合作为“每日一句”的名言，可以是中文或外文（外文请附中文翻译），并注明作者。

IMPORTANT: 只返回一个合法的 JSON 对象，不要任何其他文字、解释或 markdown。

格式：
{"content": "名言内容", "author": "作者"}`
}
