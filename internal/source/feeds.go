package source

import (
	"github.com/david-j-lopez-m/RF/internal/adapter/upstream"
	"github.com/david-j-lopez-m/RF/internal/config"
	"github.com/david-j-lopez-m/RF/internal/domain"
)

func ign() Source {
	return feed("ign", config.Source{
		URL:             "https://www.ign.es/ign/RssTools/sismologia.xml",
		UniqueKey:       "ign_id",
		TimestampField:  "event_datetime",
		TimestampFormat: "%d/%m/%Y %H:%M:%S",
	}, domain.ParseIGNItem)
}

func gdacs() Source {
	return feed("gdacs", config.Source{
		URL:             "https://www.gdacs.org/xml/rss.xml",
		UniqueKey:       "gdacs_id",
		TimestampField:  "event_datetime",
		TimestampFormat: "%a, %d %b %Y %H:%M:%S GMT",
	}, domain.ParseGDACSItem)
}

func meteoalarm() Source {
	return feed("meteoalarm", config.Source{
		URL:             "https://feeds.meteoalarm.org/feeds/meteoalarm-legacy-rss-spain",
		UniqueKey:       "guid",
		TimestampField:  "pubDate",
		TimestampFormat: "%a, %d %b %Y %H:%M:%S %z",
	}, domain.ParseMeteoalarmItem)
}

func feed(key string, defaults config.Source, parse func(domain.FeedItem) (domain.Record, error)) Source {
	return &definition[domain.FeedItem]{
		key:      key,
		format:   FormatRSS,
		defaults: defaults,
		fetch:    fetchRaw,
		decode:   upstream.DecodeFeed,
		parse:    parse,
		ref: func(it domain.FeedItem) string {
			if it.GUID != "" {
				return it.GUID
			}
			return it.Title
		},
	}
}
