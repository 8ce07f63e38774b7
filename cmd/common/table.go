package common

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/newswire/newswire/internal/domain"
)

const titleColumnWidth = 60

// RenderArticles writes a table of articles to w, newest first as given.
func RenderArticles(w io.Writer, articles []*domain.Article) {
	if len(articles) == 0 {
		fmt.Fprintln(w, "No articles found.")

		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Published", "Source", "Title", "Symbols", "Sentiment"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: titleColumnWidth, WidthMaxEnforcer: text.WrapText},
	})

	for i, article := range articles {
		sentiment := ""
		if article.Sentiment != nil {
			sentiment = fmt.Sprintf("%s (%.2f)", article.Sentiment.Label, article.Sentiment.Score)
		}

		t.AppendRow(table.Row{
			i + 1,
			article.PublishedAt.Format("2006-01-02 15:04"),
			article.Source,
			article.Title,
			strings.Join(article.RelatedSymbols, ","),
			sentiment,
		})
	}

	t.Render()
}

// RenderStats writes per-key collection counts to w.
func RenderStats(w io.Writer, stats map[string]int, keys []string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Key", "Articles"})

	total := 0
	for _, key := range keys {
		t.AppendRow(table.Row{key, stats[key]})
		total += stats[key]
	}
	t.AppendFooter(table.Row{"Total", total})

	t.Render()
}
