// Package linetoday maps an RSS channel onto the LINE Today article feed
// document.
package linetoday

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/lysyi3m/wp2line/app/feed"
	"github.com/lysyi3m/wp2line/app/xmlout"
	"github.com/samber/lo"
)

const (
	ContentType = "application/xml"

	DefaultLanguage = "en"
	NoContent       = "(No Content)"
	contentTypeText = "0"
)

// SkippedItem describes an item that was left out of the document.
type SkippedItem struct {
	Index int
	Link  string
	Err   error
}

// Result is a rendered document together with the items that could not be
// turned into articles.
type Result struct {
	Document []byte
	Articles int
	Skipped  []SkippedItem
}

type Transformer struct {
	now func() time.Time
}

func NewTransformer() *Transformer {
	return &Transformer{now: time.Now}
}

// NewTransformerWithClock uses now wherever a date is absent or malformed.
func NewTransformerWithClock(now func() time.Time) *Transformer {
	return &Transformer{now: now}
}

// Run renders channel as a LINE Today document. Channel and profile are
// only read.
func (t *Transformer) Run(channel *feed.Channel, profile *feed.Profile) (*Result, error) {
	var buf bytes.Buffer
	skipped, err := t.Write(&buf, channel, profile)
	if err != nil {
		return nil, err
	}

	return &Result{
		Document: buf.Bytes(),
		Articles: len(channel.Items) - len(skipped),
		Skipped:  skipped,
	}, nil
}

// Write streams the document to w. A failing writer is reported as
// feed.ErrXMLEmit.
func (t *Transformer) Write(w io.Writer, channel *feed.Channel, profile *feed.Profile) ([]SkippedItem, error) {
	root, skipped := t.Build(channel, profile)

	if err := xmlout.Write(w, root); err != nil {
		return nil, fmt.Errorf("%w: %w", feed.ErrXMLEmit, err)
	}

	return skipped, nil
}

// Build produces the document tree without serializing it.
func (t *Transformer) Build(channel *feed.Channel, profile *feed.Profile) (xmlout.Element, []SkippedItem) {
	now := t.now()

	docTime, ok := ParseDate(channel.LastBuildDate)
	if !ok {
		docTime = now
	}

	children := make(xmlout.Children, 0, len(channel.Items)+2)
	children = append(children,
		xmlout.Leaf("UUID", DocumentUUID(channel.Title, channel.LastBuildDate)),
		xmlout.Leaf("time", formatMillis(docTime)),
	)

	var skipped []SkippedItem
	for i := range channel.Items {
		article, err := t.buildArticle(channel, profile, i, now)
		if err != nil {
			skipped = append(skipped, SkippedItem{Index: i, Link: channel.Items[i].Link, Err: err})
			continue
		}
		children = append(children, article)
	}

	return xmlout.Element{Name: "articles", Content: children}, skipped
}

func (t *Transformer) buildArticle(channel *feed.Channel, profile *feed.Profile, index int, now time.Time) (xmlout.Element, error) {
	item := &channel.Items[index]

	category, err := resolveCategory(item, profile)
	if err != nil {
		return xmlout.Element{}, err
	}

	start, ok := ParseDate(item.PubDate)
	if !ok {
		start = now
	}
	end := start.Add(profile.PublishDuration())

	article := make(xmlout.Children, 0, 16)
	article = append(article,
		xmlout.Leaf("ID", ItemID(item.Link, index, channel.Title)),
		xmlout.Leaf("nativeCountry", profile.NativeCountry),
		xmlout.Leaf("language", ResolveLanguage(channel, profile)),
	)

	if profile.PublishCountries != nil {
		article = append(article, countryList("publishCountries", *profile.PublishCountries))
	}
	if profile.ExcludedCountries != nil {
		article = append(article, countryList("excludedCountries", *profile.ExcludedCountries))
	}

	article = append(article,
		xmlout.Leaf("startYmdtUnix", formatMillis(start)),
		xmlout.Leaf("endYmdtUnix", formatMillis(end)),
		xmlout.Leaf("title", cmp.Or(item.Title, channel.Title)),
		xmlout.Leaf("category", category),
		xmlout.Leaf("publishTimeUnix", formatMillis(start)),
		xmlout.Leaf("contentType", contentTypeText),
		xmlout.Node("contents",
			xmlout.Node("text",
				xmlout.Element{Name: "content", Content: xmlout.CData(cmp.Or(item.Content, item.Description, NoContent))},
			),
		),
		xmlout.Leaf("author", cmp.Or(item.Author, channel.Title)),
		xmlout.Leaf("sourceUrl", cmp.Or(item.Link, channel.Link)),
	)

	return xmlout.Element{Name: "article", Content: article}, nil
}

// ResolveLanguage picks the profile override, else the first two
// characters of the channel language, else DefaultLanguage.
func ResolveLanguage(channel *feed.Channel, profile *feed.Profile) string {
	if profile.Language != "" {
		return profile.Language
	}
	if channel.Language != "" {
		runes := []rune(channel.Language)
		if len(runes) > 2 {
			runes = runes[:2]
		}
		return string(runes)
	}
	return DefaultLanguage
}

func resolveCategory(item *feed.Item, profile *feed.Profile) (string, error) {
	if len(item.Categories) > 0 {
		return item.Categories[0], nil
	}
	if profile.DefaultCategory != "" {
		return profile.DefaultCategory, nil
	}
	return "", fmt.Errorf("%w: %q", feed.ErrItemMissingCategory, cmp.Or(item.Link, item.Title))
}

// countryList emits one country per comma separated token, empty tokens
// included.
func countryList(name, value string) xmlout.Element {
	countries := lo.Map(strings.Split(value, ","), func(code string, _ int) xmlout.Element {
		return xmlout.Leaf("country", code)
	})
	return xmlout.Node(name, countries...)
}

func formatMillis(t time.Time) string {
	return strconv.FormatInt(UnixMillis(t), 10)
}
