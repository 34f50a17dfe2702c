package feed

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed/rss"
)

type Parser struct {
	rssParser *rss.Parser
}

func NewParser() *Parser {
	return &Parser{
		rssParser: &rss.Parser{},
	}
}

// Run parses an RSS document into a Channel. Any parser diagnostic and a
// missing channel title are reported as ErrFeedParse.
func (p *Parser) Run(data []byte) (*Channel, error) {
	feed, err := p.rssParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeedParse, err)
	}

	title := strings.TrimSpace(feed.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: channel has no title", ErrFeedParse)
	}

	channel := &Channel{
		Title:         title,
		Link:          strings.TrimSpace(feed.Link),
		Language:      strings.TrimSpace(feed.Language),
		LastBuildDate: strings.TrimSpace(feed.LastBuildDate),
		Items:         make([]Item, 0, len(feed.Items)),
	}

	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		channel.Items = append(channel.Items, p.normalizeItem(item))
	}

	return channel, nil
}

func (p *Parser) normalizeItem(item *rss.Item) Item {
	normalized := Item{
		Title:       strings.TrimSpace(item.Title),
		Link:        strings.TrimSpace(item.Link),
		Author:      strings.TrimSpace(item.Author),
		PubDate:     strings.TrimSpace(item.PubDate),
		Content:     item.Content,
		Description: item.Description,
	}

	for _, category := range item.Categories {
		if category == nil {
			continue
		}
		normalized.Categories = append(normalized.Categories, category.Value)
	}

	// WordPress puts the author in dc:creator
	if normalized.Author == "" && item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		normalized.Author = strings.TrimSpace(item.DublinCoreExt.Creator[0])
	}

	return normalized
}
