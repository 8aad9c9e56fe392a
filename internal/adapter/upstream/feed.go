package upstream

import (
	"bytes"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/david-j-lopez-m/RF/internal/domain"
)

// DecodeFeed parses an RSS or Atom document into feed items. Namespaced
// extension elements are flattened to "prefix:name" keys.
func DecodeFeed(data []byte) ([]domain.FeedItem, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &domain.FormatError{Reason: "invalid feed document", Err: err}
	}

	items := make([]domain.FeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		items = append(items, domain.FeedItem{
			Title:       it.Title,
			Description: it.Description,
			Link:        it.Link,
			GUID:        it.GUID,
			Published:   it.Published,
			Extensions:  flattenExtensions(it),
		})
	}
	return items, nil
}

func flattenExtensions(it *gofeed.Item) map[string]string {
	out := make(map[string]string)
	for prefix, byName := range it.Extensions {
		for name, list := range byName {
			if len(list) == 0 {
				continue
			}
			out[prefix+":"+name] = strings.TrimSpace(list[0].Value)
		}
	}
	return out
}
