package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"anemoia/internal/domain"

	"gopkg.in/yaml.v3"
	"mvdan.cc/xurls/v2"
)

// DefaultFeeds is used for any bucket whose list is empty.
func DefaultFeeds() []string {
	return []string{
		"http://feeds.reuters.com/reuters/UKTopNews",
		"http://feeds.bbci.co.uk/news/rss.xml",
		"https://www.nasa.gov/rss/dyn/breaking_news.rss",
		"http://www.wsj.com/xml/rss/3_7085.xml",
		"https://www.aljazeera.com/xml/rss/all.xml",
	}
}

// Feeds lists feed URLs per bucket.
type Feeds struct {
	Latest  []string `json:"latest"  yaml:"latest"`
	Top     []string `json:"top"     yaml:"top"`
	Curated []string `json:"curated" yaml:"curated"`
}

// For returns the bucket's feed URLs, falling back to DefaultFeeds.
func (f Feeds) For(bucket domain.Bucket) []string {
	var urls []string

	switch bucket {
	case domain.BucketLatest:
		urls = f.Latest
	case domain.BucketTop:
		urls = f.Top
	case domain.BucketCurated:
		urls = f.Curated
	}

	if len(urls) == 0 {
		return DefaultFeeds()
	}

	return slices.Clone(urls)
}

// LoadFeeds reads a JSON or YAML feed document. A missing file yields the
// default feed set for every bucket.
func LoadFeeds(path string) (Feeds, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Feeds{}, nil
	}
	if err != nil {
		return Feeds{}, fmt.Errorf("read feeds file: %w", err)
	}

	return ParseFeeds(data, filepath.Ext(path))
}

func ParseFeeds(data []byte, ext string) (Feeds, error) {
	var feeds Feeds

	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &feeds); err != nil {
			return Feeds{}, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &feeds); err != nil {
			return Feeds{}, fmt.Errorf("decode JSON: %w", err)
		}
	}

	if err := feeds.validate(); err != nil {
		return Feeds{}, err
	}

	return feeds, nil
}

func (f *Feeds) validate() error {
	urlRe, err := xurls.StrictMatchingScheme(`https?://`)
	if err != nil {
		return fmt.Errorf("create regexp: %w", err)
	}

	var errs []error

	lists := map[domain.Bucket]*[]string{
		domain.BucketLatest:  &f.Latest,
		domain.BucketTop:     &f.Top,
		domain.BucketCurated: &f.Curated,
	}

	for bucket, list := range lists {
		for i, u := range *list {
			u = strings.TrimSpace(u)
			if urlRe.FindString(u) != u || u == "" {
				errs = append(errs, fmt.Errorf("%s[%d]: %q is not an http(s) URL", bucket, i, u))
				continue
			}

			(*list)[i] = u
		}
	}

	return errors.Join(errs...)
}
