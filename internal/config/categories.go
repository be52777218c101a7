package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/thinkscotty/globaldaily/internal/models"
)

type categoriesFile struct {
	Categories []models.Category `yaml:"categories"`
}

// LoadCategories reads the category/source list from a separate YAML file.
// Falls back to defaults if the file is missing or lists no categories.
func LoadCategories(path string) ([]models.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultCategories(), nil
		}
		return nil, fmt.Errorf("read categories file: %w", err)
	}

	var f categoriesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse categories file: %w", err)
	}

	if len(f.Categories) == 0 {
		return DefaultCategories(), nil
	}
	return f.Categories, nil
}

// DefaultCategories returns the built-in menu: domestic and international
// news sections plus the creative section.
func DefaultCategories() []models.Category {
	return []models.Category{
		{
			Key: "domestic-politics", Section: "国内", Name: "政治", Kind: models.KindSummarizeNews, ImageTopic: "politics",
			Feeds: []string{"https://www.zaobao.com.sg/rss/news/china", "http://rss.sina.com.cn/news/china/focus15.xml"},
		},
		{
			Key: "domestic-economy", Section: "国内", Name: "经济", Kind: models.KindSummarizeNews, ImageTopic: "economy",
			Feeds: []string{"http://www.caixin.com/rss/finance.xml", "https://www.yicai.com/rss/toutiao.xml"},
		},
		{
			Key: "domestic-tech", Section: "国内", Name: "科技", Kind: models.KindSummarizeNews, ImageTopic: "tech",
			Feeds: []string{"https://www.36kr.com/feed", "https://www.yicai.com/rss/kechuang.xml"},
		},
		{
			Key: "domestic-ai", Section: "国内", Name: "AI", Kind: models.KindSummarizeNews, ImageTopic: "ai",
			Feeds: []string{"https://www.jiqizhixin.com/rss", "https://www.qbitai.com/feed"},
		},
		{
			Key: "world-politics", Section: "国际", Name: "政治", Kind: models.KindSummarizeNews, ImageTopic: "politics",
			Feeds: []string{"http://feeds.bbci.co.uk/news/world/rss.xml"},
		},
		{
			Key: "world-economy", Section: "国际", Name: "经济", Kind: models.KindSummarizeNews, ImageTopic: "economy",
			Feeds: []string{"https://www.cnbc.com/id/10000664/device/rss/rss.html"},
		},
		{
			Key: "world-tech", Section: "国际", Name: "科技", Kind: models.KindSummarizeNews, ImageTopic: "tech",
			Feeds: []string{"https://www.theverge.com/rss/index.xml"},
		},
		{
			Key: "world-ai", Section: "国际", Name: "AI", Kind: models.KindSummarizeNews, ImageTopic: "ai",
			Feeds: []string{"https://techcrunch.com/category/artificial-intelligence/feed/"},
		},
		{
			Key: "creative-products", Section: "创意", Name: "科技产品", Kind: models.KindComposeEditorial, ImageTopic: "product",
			Feeds: []string{"https://www.producthunt.com/feed"},
		},
		{
			Key: "creative-jokes", Section: "创意", Name: "每日一笑", Kind: models.KindComposeJokes, ImageTopic: "humor",
		},
		{
			Key: "creative-quote", Section: "创意", Name: "每日一句", Kind: models.KindComposeQuote, ImageTopic: "quote",
		},
	}
}
