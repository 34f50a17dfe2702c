package linetoday

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/wp2line/app/feed"
)

type testDocument struct {
	XMLName  xml.Name      `xml:"articles"`
	UUID     string        `xml:"UUID"`
	Time     int64         `xml:"time"`
	Articles []testArticle `xml:"article"`
}

type testArticle struct {
	ID                string         `xml:"ID"`
	NativeCountry     string         `xml:"nativeCountry"`
	Language          string         `xml:"language"`
	PublishCountries  *testCountries `xml:"publishCountries"`
	ExcludedCountries *testCountries `xml:"excludedCountries"`
	StartYmdtUnix     int64          `xml:"startYmdtUnix"`
	EndYmdtUnix       int64          `xml:"endYmdtUnix"`
	Title             string         `xml:"title"`
	Category          string         `xml:"category"`
	PublishTimeUnix   int64          `xml:"publishTimeUnix"`
	ContentType       string         `xml:"contentType"`
	Content           string         `xml:"contents>text>content"`
	Author            string         `xml:"author"`
	SourceURL         string         `xml:"sourceUrl"`
}

type testCountries struct {
	Countries []string `xml:"country"`
}

var fixedNow = time.Date(2025, 3, 15, 8, 30, 45, 123456789, time.UTC)

func newTestTransformer() *Transformer {
	return NewTransformerWithClock(func() time.Time { return fixedNow })
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func transform(t *testing.T, channel *feed.Channel, profile *feed.Profile) (*Result, testDocument) {
	t.Helper()

	result, err := newTestTransformer().Run(channel, profile)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	var doc testDocument
	if err := xml.Unmarshal(result.Document, &doc); err != nil {
		t.Fatalf("Expected well-formed XML, got: %v\n%s", err, result.Document)
	}

	return result, doc
}

func scenarioChannel() *feed.Channel {
	return &feed.Channel{
		Title:         "Acme News",
		Link:          "http://a/",
		LastBuildDate: "Mon, 01 Jan 2024 00:00:00 GMT",
		Items: []feed.Item{
			{
				Link:       "http://a/1",
				PubDate:    "Mon, 01 Jan 2024 00:00:00 GMT",
				Categories: []string{"Tech"},
				Content:    "<p>hi</p>",
			},
		},
	}
}

func TestTransformScenario(t *testing.T) {
	profile := &feed.Profile{NativeCountry: "TW", PublishDurationWeeks: intPtr(2)}

	result, doc := transform(t, scenarioChannel(), profile)

	if len(doc.Articles) != 1 {
		t.Fatalf("Expected 1 article, got %d", len(doc.Articles))
	}

	article := doc.Articles[0]
	if article.StartYmdtUnix != 1704067200000 {
		t.Errorf("Expected startYmdtUnix 1704067200000, got %d", article.StartYmdtUnix)
	}
	if article.EndYmdtUnix != 1705276800000 {
		t.Errorf("Expected endYmdtUnix 1705276800000, got %d", article.EndYmdtUnix)
	}
	if article.Category != "Tech" {
		t.Errorf("Expected category 'Tech', got '%s'", article.Category)
	}
	if article.Content != "<p>hi</p>" {
		t.Errorf("Expected content '<p>hi</p>', got '%s'", article.Content)
	}
	if !bytes.Contains(result.Document, []byte("<content><![CDATA[<p>hi</p>]]></content>")) {
		t.Errorf("Expected content to be written as CDATA:\n%s", result.Document)
	}

	if article.NativeCountry != "TW" {
		t.Errorf("Expected nativeCountry 'TW', got '%s'", article.NativeCountry)
	}
	if article.Language != "en" {
		t.Errorf("Expected language 'en', got '%s'", article.Language)
	}
	if article.Title != "Acme News" {
		t.Errorf("Expected title to fall back to channel title, got '%s'", article.Title)
	}
	if article.Author != "Acme News" {
		t.Errorf("Expected author to fall back to channel title, got '%s'", article.Author)
	}
	if article.SourceURL != "http://a/1" {
		t.Errorf("Expected sourceUrl 'http://a/1', got '%s'", article.SourceURL)
	}
	if article.ContentType != "0" {
		t.Errorf("Expected contentType '0', got '%s'", article.ContentType)
	}
	if article.PublishTimeUnix != 1704067200000 {
		t.Errorf("Expected publishTimeUnix 1704067200000, got %d", article.PublishTimeUnix)
	}
	if article.ID != ItemID("http://a/1", 0, "Acme News") {
		t.Errorf("Expected ID derived from link, got '%s'", article.ID)
	}

	if doc.UUID != "AcmeNewsMon01Jan2024000000GMT" {
		t.Errorf("Expected UUID 'AcmeNewsMon01Jan2024000000GMT', got '%s'", doc.UUID)
	}
	if doc.Time != 1704067200000 {
		t.Errorf("Expected time 1704067200000, got %d", doc.Time)
	}

	if result.Articles != 1 || len(result.Skipped) != 0 {
		t.Errorf("Expected 1 article and no skipped items, got %d and %d", result.Articles, len(result.Skipped))
	}
}

func TestTransformPreservesItemOrderAndCount(t *testing.T) {
	channel := &feed.Channel{Title: "Feed", Link: "https://example.com"}
	for i := 0; i < 25; i++ {
		channel.Items = append(channel.Items, feed.Item{
			Title:      fmt.Sprintf("Item %d", i),
			Link:       fmt.Sprintf("https://example.com/%d", i),
			Categories: []string{"News"},
		})
	}

	_, doc := transform(t, channel, &feed.Profile{NativeCountry: "JP"})

	if len(doc.Articles) != len(channel.Items) {
		t.Fatalf("Expected %d articles, got %d", len(channel.Items), len(doc.Articles))
	}
	for i, article := range doc.Articles {
		if article.Title != channel.Items[i].Title {
			t.Errorf("Article %d: expected title '%s', got '%s'", i, channel.Items[i].Title, article.Title)
		}
	}
}

func TestTransformEmptyChannel(t *testing.T) {
	_, doc := transform(t, &feed.Channel{Title: "Empty"}, &feed.Profile{NativeCountry: "TW"})

	if len(doc.Articles) != 0 {
		t.Errorf("Expected no articles, got %d", len(doc.Articles))
	}
	if doc.UUID != "Empty" {
		t.Errorf("Expected UUID 'Empty', got '%s'", doc.UUID)
	}
}

func TestTransformElementOrder(t *testing.T) {
	profile := &feed.Profile{
		NativeCountry:     "TW",
		PublishCountries:  strPtr("TW"),
		ExcludedCountries: strPtr("CN"),
	}

	result, err := newTestTransformer().Run(scenarioChannel(), profile)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	var names []string
	decoder := xml.NewDecoder(bytes.NewReader(result.Document))
	depth := 0
	for {
		token, err := decoder.Token()
		if err != nil {
			break
		}
		switch tok := token.(type) {
		case xml.StartElement:
			depth++
			if depth == 3 {
				names = append(names, tok.Name.Local)
			}
		case xml.EndElement:
			depth--
		}
	}

	expected := []string{
		"ID", "nativeCountry", "language", "publishCountries", "excludedCountries",
		"startYmdtUnix", "endYmdtUnix", "title", "category", "publishTimeUnix",
		"contentType", "contents", "author", "sourceUrl",
	}

	if strings.Join(names, ",") != strings.Join(expected, ",") {
		t.Errorf("Expected article children %v, got %v", expected, names)
	}
}

func TestTransformCountryLists(t *testing.T) {
	tests := []struct {
		name      string
		value     *string
		expected  []string
		wantEmpty bool
	}{
		{name: "unset", value: nil},
		{name: "two countries", value: strPtr("US,JP"), expected: []string{"US", "JP"}},
		{name: "single", value: strPtr("TW"), expected: []string{"TW"}},
		{name: "unstripped tokens", value: strPtr("US, JP"), expected: []string{"US", " JP"}},
		{name: "empty tokens kept", value: strPtr("US,,JP,"), expected: []string{"US", "", "JP", ""}},
		{name: "empty string", value: strPtr(""), expected: []string{""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := &feed.Profile{NativeCountry: "TW", PublishCountries: tt.value, ExcludedCountries: tt.value}
			result, doc := transform(t, scenarioChannel(), profile)
			article := doc.Articles[0]

			if tt.value == nil {
				if article.PublishCountries != nil || article.ExcludedCountries != nil {
					t.Errorf("Expected no country lists, got %+v / %+v", article.PublishCountries, article.ExcludedCountries)
				}
				if bytes.Contains(result.Document, []byte("publishCountries")) {
					t.Error("Expected no publishCountries element in document")
				}
				return
			}

			for _, list := range []*testCountries{article.PublishCountries, article.ExcludedCountries} {
				if list == nil {
					t.Fatal("Expected country list element")
				}
				if len(list.Countries) != len(tt.expected) {
					t.Fatalf("Expected %d countries, got %d (%q)", len(tt.expected), len(list.Countries), list.Countries)
				}
				for i, country := range tt.expected {
					if list.Countries[i] != country {
						t.Errorf("Country %d: expected %q, got %q", i, country, list.Countries[i])
					}
				}
			}
		})
	}
}

func TestTransformOnlyPublishCountries(t *testing.T) {
	profile := &feed.Profile{NativeCountry: "TW", PublishCountries: strPtr("US,JP")}
	_, doc := transform(t, scenarioChannel(), profile)

	if doc.Articles[0].PublishCountries == nil {
		t.Fatal("Expected publishCountries element")
	}
	if doc.Articles[0].ExcludedCountries != nil {
		t.Error("Expected no excludedCountries element")
	}
}

func TestTransformPublishDuration(t *testing.T) {
	for _, weeks := range []int{0, 1, 2, 52, 144, 255} {
		profile := &feed.Profile{NativeCountry: "TW", PublishDurationWeeks: intPtr(weeks)}
		_, doc := transform(t, scenarioChannel(), profile)

		article := doc.Articles[0]
		expected := int64(weeks) * 7 * 86400 * 1000
		if diff := article.EndYmdtUnix - article.StartYmdtUnix; diff != expected {
			t.Errorf("weeks=%d: expected end-start %d, got %d", weeks, expected, diff)
		}
	}
}

func TestTransformDefaultPublishDuration(t *testing.T) {
	_, doc := transform(t, scenarioChannel(), &feed.Profile{NativeCountry: "TW"})

	article := doc.Articles[0]
	expected := int64(144) * 7 * 86400 * 1000
	if diff := article.EndYmdtUnix - article.StartYmdtUnix; diff != expected {
		t.Errorf("Expected default duration of 144 weeks (%d), got %d", expected, diff)
	}
}

func TestTransformDateFallbacks(t *testing.T) {
	channel := &feed.Channel{
		Title:         "Feed",
		LastBuildDate: "not a date",
		Items: []feed.Item{
			{Link: "https://example.com/a", Categories: []string{"A"}},
			{Link: "https://example.com/b", PubDate: "yesterday", Categories: []string{"B"}},
		},
	}

	_, doc := transform(t, channel, &feed.Profile{NativeCountry: "TW"})

	nowMillis := fixedNow.Unix() * 1000
	if doc.Time != nowMillis {
		t.Errorf("Expected document time to fall back to now (%d), got %d", nowMillis, doc.Time)
	}
	for i, article := range doc.Articles {
		if article.StartYmdtUnix != nowMillis {
			t.Errorf("Article %d: expected start to fall back to now (%d), got %d", i, nowMillis, article.StartYmdtUnix)
		}
		if article.StartYmdtUnix%1000 != 0 {
			t.Errorf("Article %d: expected whole seconds, got %d", i, article.StartYmdtUnix)
		}
	}
}

func TestTransformDateWithOffset(t *testing.T) {
	channel := scenarioChannel()
	channel.Items[0].PubDate = "Mon, 01 Jan 2024 08:00:00 +0800"

	_, doc := transform(t, channel, &feed.Profile{NativeCountry: "TW"})

	if doc.Articles[0].StartYmdtUnix != 1704067200000 {
		t.Errorf("Expected startYmdtUnix 1704067200000, got %d", doc.Articles[0].StartYmdtUnix)
	}
}

func TestTransformFieldFallbacks(t *testing.T) {
	channel := &feed.Channel{
		Title: "Channel Title",
		Link:  "https://example.com",
		Items: []feed.Item{
			{
				Title:       "Own Title",
				Link:        "https://example.com/own",
				Author:      "Jane Doe",
				Description: "Only a description",
				Categories:  []string{"First", "Second"},
			},
			{
				Categories: []string{"Misc"},
			},
		},
	}

	_, doc := transform(t, channel, &feed.Profile{NativeCountry: "TW"})

	own := doc.Articles[0]
	if own.Title != "Own Title" || own.Author != "Jane Doe" || own.SourceURL != "https://example.com/own" {
		t.Errorf("Expected item values to be used, got title=%q author=%q source=%q", own.Title, own.Author, own.SourceURL)
	}
	if own.Content != "Only a description" {
		t.Errorf("Expected content to fall back to description, got '%s'", own.Content)
	}
	if own.Category != "First" {
		t.Errorf("Expected first category, got '%s'", own.Category)
	}

	bare := doc.Articles[1]
	if bare.Title != "Channel Title" || bare.Author != "Channel Title" || bare.SourceURL != "https://example.com" {
		t.Errorf("Expected channel fallbacks, got title=%q author=%q source=%q", bare.Title, bare.Author, bare.SourceURL)
	}
	if bare.Content != NoContent {
		t.Errorf("Expected content '%s', got '%s'", NoContent, bare.Content)
	}
	if bare.ID != ItemID("", 1, "Channel Title") {
		t.Errorf("Expected ID derived from index and channel title, got '%s'", bare.ID)
	}
}

func TestTransformContentPrefersContentOverDescription(t *testing.T) {
	channel := scenarioChannel()
	channel.Items[0].Description = "summary"
	channel.Items[0].Content = "<div>full]]>body</div>"

	_, doc := transform(t, channel, &feed.Profile{NativeCountry: "TW"})

	if doc.Articles[0].Content != "<div>full]]>body</div>" {
		t.Errorf("Expected full content, got '%s'", doc.Articles[0].Content)
	}
}

func TestTransformLanguage(t *testing.T) {
	tests := []struct {
		name     string
		override string
		channel  string
		expected string
	}{
		{"override wins", "ja", "en-us", "ja"},
		{"channel prefix", "", "zh-TW", "zh"},
		{"channel two letters", "", "fr", "fr"},
		{"channel one letter", "", "x", "x"},
		{"default", "", "", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channel := scenarioChannel()
			channel.Language = tt.channel
			_, doc := transform(t, channel, &feed.Profile{NativeCountry: "TW", Language: tt.override})

			if doc.Articles[0].Language != tt.expected {
				t.Errorf("Expected language '%s', got '%s'", tt.expected, doc.Articles[0].Language)
			}
		})
	}
}

func TestTransformMissingCategorySkipsItem(t *testing.T) {
	channel := &feed.Channel{
		Title: "Feed",
		Items: []feed.Item{
			{Link: "https://example.com/1", Categories: []string{"A"}},
			{Link: "https://example.com/2"},
			{Link: "https://example.com/3", Categories: []string{"C"}},
		},
	}

	result, doc := transform(t, channel, &feed.Profile{NativeCountry: "TW"})

	if len(doc.Articles) != 2 {
		t.Fatalf("Expected 2 articles, got %d", len(doc.Articles))
	}
	if doc.Articles[0].Category != "A" || doc.Articles[1].Category != "C" {
		t.Errorf("Expected remaining articles in order, got %q, %q", doc.Articles[0].Category, doc.Articles[1].Category)
	}
	if result.Articles != 2 {
		t.Errorf("Expected article count 2, got %d", result.Articles)
	}
	if len(result.Skipped) != 1 {
		t.Fatalf("Expected 1 skipped item, got %d", len(result.Skipped))
	}

	skipped := result.Skipped[0]
	if skipped.Index != 1 || skipped.Link != "https://example.com/2" {
		t.Errorf("Expected skipped item 1 (https://example.com/2), got %d (%s)", skipped.Index, skipped.Link)
	}
	if !errors.Is(skipped.Err, feed.ErrItemMissingCategory) {
		t.Errorf("Expected ErrItemMissingCategory, got: %v", skipped.Err)
	}
}

func TestTransformMissingCategoryUsesDefault(t *testing.T) {
	channel := &feed.Channel{
		Title: "Feed",
		Items: []feed.Item{{Link: "https://example.com/1"}},
	}

	result, doc := transform(t, channel, &feed.Profile{NativeCountry: "TW", DefaultCategory: "General"})

	if len(doc.Articles) != 1 {
		t.Fatalf("Expected 1 article, got %d", len(doc.Articles))
	}
	if doc.Articles[0].Category != "General" {
		t.Errorf("Expected default category 'General', got '%s'", doc.Articles[0].Category)
	}
	if len(result.Skipped) != 0 {
		t.Errorf("Expected no skipped items, got %d", len(result.Skipped))
	}
}

func TestTransformDoesNotMutateInput(t *testing.T) {
	channel := scenarioChannel()
	channel.Items = append(channel.Items, feed.Item{})
	profile := &feed.Profile{NativeCountry: "TW", PublishCountries: strPtr("US,JP")}

	before := fmt.Sprintf("%+v %+v %s", *channel, *profile, *profile.PublishCountries)
	newTestTransformer().Run(channel, profile)
	after := fmt.Sprintf("%+v %+v %s", *channel, *profile, *profile.PublishCountries)

	if before != after {
		t.Errorf("Expected inputs to be unchanged:\nbefore: %s\nafter:  %s", before, after)
	}
}

func TestTransformEscapesText(t *testing.T) {
	channel := scenarioChannel()
	channel.Items[0].Title = `Q&A: <script>"x"</script>`

	result, doc := transform(t, channel, &feed.Profile{NativeCountry: "TW"})

	if doc.Articles[0].Title != `Q&A: <script>"x"</script>` {
		t.Errorf("Expected title to round-trip, got '%s'", doc.Articles[0].Title)
	}
	if bytes.Contains(result.Document, []byte("<script>")) {
		t.Error("Expected markup in title to be escaped")
	}
}

func TestTransformUUIDFormat(t *testing.T) {
	pattern := regexp.MustCompile(`^[a-zA-Z0-9]{0,30}$`)

	channel := &feed.Channel{
		Title:         "Ünïcödé — News & Views: the very long channel title edition",
		LastBuildDate: "Tue, 02 Jan 2024 10:11:12 +0000",
	}

	_, first := transform(t, channel, &feed.Profile{NativeCountry: "TW"})
	_, second := transform(t, channel, &feed.Profile{NativeCountry: "US"})

	if !pattern.MatchString(first.UUID) {
		t.Errorf("Expected UUID to match %s, got '%s'", pattern, first.UUID)
	}
	if first.UUID != second.UUID {
		t.Errorf("Expected stable UUID, got '%s' and '%s'", first.UUID, second.UUID)
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("write failed")
}

func TestTransformWriteFailure(t *testing.T) {
	_, err := newTestTransformer().Write(failingWriter{}, scenarioChannel(), &feed.Profile{NativeCountry: "TW"})

	if !errors.Is(err, feed.ErrXMLEmit) {
		t.Errorf("Expected ErrXMLEmit, got: %v", err)
	}
}
